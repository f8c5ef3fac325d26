package classifier

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"teraBridgeBot/internal/types"
)

// ErrInvalidLink is returned when input matches no supported share-link
// pattern. Errors wrapping it carry the supported domain list so the bot
// can tell the user exactly what is accepted.
var ErrInvalidLink = errors.New("unsupported link")

// SupportedDomains lists the share-link hosts the bot accepts.
var SupportedDomains = []string{
	"terabox.com",
	"www.terabox.com",
	"1024terabox.com",
	"nd.terabox.com",
	"teraboxapp.com",
	"www.teraboxapp.com",
	"1024tera.com",
	"terabox.app",
	"freeterabox.com",
}

var (
	sharePathRe = regexp.MustCompile(`^/s/([A-Za-z0-9_-]+)$`)
	// Bare share IDs start with '1' on every TeraBox variant.
	bareShareIDRe = regexp.MustCompile(`^1[A-Za-z0-9_-]{5,}$`)
)

// Classify extracts a ResourceLocator from user input. It accepts full
// share URLs (`/s/<id>` paths or `sharing/link?surl=<id>`), and bare share
// IDs. It performs no network calls.
func Classify(text string) (types.ResourceLocator, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ResourceLocator{}, invalidLink("empty input")
	}

	if bareShareIDRe.MatchString(text) {
		return types.ResourceLocator{Provider: "terabox.com", ShareID: text}, nil
	}

	raw := text
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return types.ResourceLocator{}, invalidLink("not a URL or share ID")
	}

	host := strings.ToLower(u.Hostname())
	if !supportedHost(host) {
		return types.ResourceLocator{}, invalidLink(fmt.Sprintf("unsupported host %q", host))
	}

	if m := sharePathRe.FindStringSubmatch(u.Path); m != nil {
		return types.ResourceLocator{Provider: host, ShareID: m[1], RawURL: raw}, nil
	}

	if strings.HasPrefix(u.Path, "/sharing/link") {
		if surl := u.Query().Get("surl"); surl != "" {
			return types.ResourceLocator{Provider: host, ShareID: surl, RawURL: raw}, nil
		}
	}

	return types.ResourceLocator{}, invalidLink("no share ID found in URL")
}

func supportedHost(host string) bool {
	for _, d := range SupportedDomains {
		if host == d {
			return true
		}
	}
	return false
}

func invalidLink(reason string) error {
	return fmt.Errorf("%w: %s; supported domains: %s",
		ErrInvalidLink, reason, strings.Join(SupportedDomains, ", "))
}
