package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"teraBridgeBot/internal/types"
)

// RapidAdapter queries a keyed resolution API that accepts the full share
// URL and answers with a direct CDN link plus an optional fast mirror.
type RapidAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRapidAdapter builds the adapter. The timeout bounds each Resolve call
// independently of the caller's context.
func NewRapidAdapter(baseURL, apiKey string, timeout time.Duration) *RapidAdapter {
	return &RapidAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *RapidAdapter) ID() string { return "rapid" }

type rapidResponse struct {
	FileName   string       `json:"file_name"`
	Size       flexibleSize `json:"size"`
	SizeBytes  int64        `json:"sizebytes"`
	Link       string       `json:"link"`
	DirectLink string       `json:"direct_link"`
}

// Resolve calls GET {base}/url?url=<shareURL> with the configured API key.
func (a *RapidAdapter) Resolve(ctx context.Context, loc types.ResourceLocator) (*types.FileDescriptor, error) {
	endpoint := fmt.Sprintf("%s/url?url=%s", a.baseURL, url.QueryEscape(loc.ShareURL()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindTransport, Cause: err}
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindTransport, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ResolverError{
			AdapterID: a.ID(),
			Kind:      KindTransport,
			Cause:     fmt.Errorf("upstream returned %s", resp.Status),
		}
	}

	var body rapidResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindBadResponse, Cause: err}
	}

	size := body.SizeBytes
	if size <= 0 {
		size = int64(body.Size)
	}

	desc := &types.FileDescriptor{
		Name:      defaultName(body.FileName),
		SizeBytes: size,
		// "link" is the plain CDN URL; "direct_link" is the fast mirror.
		PrimaryLink:    cleanLink(body.Link),
		AlternateLink:  cleanLink(body.DirectLink),
		SourceProvider: loc.Provider,
		ResolverUsed:   a.ID(),
	}
	if !desc.Usable() {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindBadResponse, Cause: ErrNoUsableLink}
	}
	return desc, nil
}
