package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
)

var (
	// ErrTokenUnknown is returned for tokens that were never issued or
	// whose cache entry has been evicted.
	ErrTokenUnknown = errors.New("unknown token")
	// ErrTokenExpired is returned for tokens past their lifetime.
	ErrTokenExpired = errors.New("token expired")
)

// Grant is the payload a token resolves to: which requester may play
// which link, and when the right was issued.
type Grant struct {
	RequesterID int64
	Link        string
	IssuedAt    time.Time
}

// Issuer mints and validates opaque access tokens for the web player.
// Tokens are HMAC-SHA256 digests, so they cannot be forged, and grants
// live only in an in-memory cache, so a restart revokes everything.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	store  *freecache.Cache
	now    func() time.Time
}

const tokenCacheSize = 10 * 1024 * 1024

// NewIssuer creates an issuer with the given signing secret and grant
// lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		store:  freecache.NewCache(tokenCacheSize),
		now:    time.Now,
	}
}

// Issue mints a token granting requesterID playback access to link. The
// token doubles as the cache key; the cache TTL purges stale grants
// without any sweeper.
func (i *Issuer) Issue(requesterID int64, link string) (string, error) {
	issuedAt := i.now()

	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "%d|%d|%s", requesterID, issuedAt.UnixNano(), link)
	tok := hex.EncodeToString(mac.Sum(nil))[:32]

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(Grant{
		RequesterID: requesterID,
		Link:        link,
		IssuedAt:    issuedAt,
	}); err != nil {
		return "", fmt.Errorf("failed to encode grant: %w", err)
	}
	if err := i.store.Set([]byte(tok), buf.Bytes(), int(i.ttl.Seconds())); err != nil {
		return "", fmt.Errorf("failed to store grant: %w", err)
	}
	return tok, nil
}

// Validate resolves a token back to its grant. It fails with
// ErrTokenUnknown for tokens never issued (or already purged) and
// ErrTokenExpired for grants past their lifetime.
func (i *Issuer) Validate(tok string) (*Grant, error) {
	raw, err := i.store.Get([]byte(tok))
	if err != nil {
		return nil, ErrTokenUnknown
	}

	var g Grant
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err != nil {
		return nil, ErrTokenUnknown
	}

	// The cache TTL usually expires grants first; this guards against
	// clock adjustments and keeps expiry testable.
	if i.now().Sub(g.IssuedAt) > i.ttl {
		i.store.Del([]byte(tok))
		return nil, ErrTokenExpired
	}
	return &g, nil
}

// Revoke drops a grant before its natural expiry.
func (i *Issuer) Revoke(tok string) {
	i.store.Del([]byte(tok))
}
