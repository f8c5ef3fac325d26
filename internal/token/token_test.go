package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	i := NewIssuer("secret", time.Hour)

	tok, err := i.Issue(42, "https://cdn.example/video.mp4")
	require.NoError(t, err)
	assert.Len(t, tok, 32)

	g, err := i.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), g.RequesterID)
	assert.Equal(t, "https://cdn.example/video.mp4", g.Link)
}

func TestValidateUnknownToken(t *testing.T) {
	i := NewIssuer("secret", time.Hour)

	_, err := i.Validate("deadbeefdeadbeefdeadbeefdeadbeef")
	assert.ErrorIs(t, err, ErrTokenUnknown)
}

func TestValidateExpiredToken(t *testing.T) {
	i := NewIssuer("secret", time.Hour)

	base := time.Now()
	i.now = func() time.Time { return base }

	tok, err := i.Issue(42, "https://cdn.example/video.mp4")
	require.NoError(t, err)

	i.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = i.Validate(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Expired grants are purged, so a retry reports unknown.
	_, err = i.Validate(tok)
	assert.ErrorIs(t, err, ErrTokenUnknown)
}

func TestTokensAreUniquePerIssue(t *testing.T) {
	i := NewIssuer("secret", time.Hour)

	base := time.Now()
	calls := 0
	i.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Nanosecond)
	}

	a, err := i.Issue(42, "https://cdn.example/video.mp4")
	require.NoError(t, err)
	b, err := i.Issue(42, "https://cdn.example/video.mp4")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRevoke(t *testing.T) {
	i := NewIssuer("secret", time.Hour)

	tok, err := i.Issue(42, "https://cdn.example/video.mp4")
	require.NoError(t, err)

	i.Revoke(tok)
	_, err = i.Validate(tok)
	assert.ErrorIs(t, err, ErrTokenUnknown)
}
