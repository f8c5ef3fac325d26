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

// CloudfetchAdapter queries an unkeyed resolution API that takes the bare
// share ID and answers with a file list, each entry carrying a CDN link
// and an optional fast mirror.
type CloudfetchAdapter struct {
	baseURL string
	client  *http.Client
}

func NewCloudfetchAdapter(baseURL string, timeout time.Duration) *CloudfetchAdapter {
	return &CloudfetchAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *CloudfetchAdapter) ID() string { return "cloudfetch" }

type cloudfetchEntry struct {
	Filename  string       `json:"filename"`
	Size      flexibleSize `json:"size"`
	Dlink     string       `json:"dlink"`
	FastDlink string       `json:"fast_dlink"`
}

type cloudfetchResponse struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	List    []cloudfetchEntry `json:"list"`
}

// Resolve calls GET {base}/api?surl=<shareID>. Share links always carry a
// single file for our purposes; only the first list entry is used.
func (a *CloudfetchAdapter) Resolve(ctx context.Context, loc types.ResourceLocator) (*types.FileDescriptor, error) {
	endpoint := fmt.Sprintf("%s/api?surl=%s", a.baseURL, url.QueryEscape(loc.ShareID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindTransport, Cause: err}
	}
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

	var body cloudfetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindBadResponse, Cause: err}
	}
	if !body.OK {
		msg := body.Message
		if msg == "" {
			msg = "upstream reported failure"
		}
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindBadResponse, Cause: fmt.Errorf("%s", msg)}
	}
	if len(body.List) == 0 {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindBadResponse, Cause: fmt.Errorf("empty file list")}
	}

	entry := body.List[0]
	desc := &types.FileDescriptor{
		Name:           defaultName(entry.Filename),
		SizeBytes:      int64(entry.Size),
		PrimaryLink:    cleanLink(entry.Dlink),
		AlternateLink:  cleanLink(entry.FastDlink),
		SourceProvider: loc.Provider,
		ResolverUsed:   a.ID(),
	}
	if !desc.Usable() {
		return nil, &ResolverError{AdapterID: a.ID(), Kind: KindBadResponse, Cause: ErrNoUsableLink}
	}
	return desc, nil
}
