package resolver

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"teraBridgeBot/internal/types"

	"github.com/dustin/go-humanize"
)

// Adapter translates one upstream link-resolution API into a normalized
// FileDescriptor. Implementations fail with *ResolverError and perform no
// side effects beyond the outbound HTTP call.
type Adapter interface {
	ID() string
	Resolve(ctx context.Context, loc types.ResourceLocator) (*types.FileDescriptor, error)
}

// BrowserUserAgent is sent on resolver and download requests; several
// upstream CDNs reject Go's default client string.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// flexibleSize decodes a size field that upstreams send either as a number
// of bytes or as a human-formatted string ("1.5 GB"). Anything unparseable
// decodes to 0, which callers treat as "size unknown".
type flexibleSize int64

func (s *flexibleSize) UnmarshalJSON(b []byte) error {
	*s = 0
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" || strings.EqualFold(str, "n/a") {
			return nil
		}
		if v, err := humanize.ParseBytes(str); err == nil {
			*s = flexibleSize(v)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if v, err := strconv.ParseFloat(n.String(), 64); err == nil && v > 0 {
		*s = flexibleSize(v)
	}
	return nil
}

// cleanLink normalizes link fields, mapping placeholder values upstreams
// use for "no link" to the empty string.
func cleanLink(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "", strings.EqualFold(s, "n/a"), strings.EqualFold(s, "null"):
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return ""
	}
	return s
}

func defaultName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.DefaultFileName
	}
	return name
}
