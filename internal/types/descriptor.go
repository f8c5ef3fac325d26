package types

import (
	"fmt"
	"path"
	"strings"
)

// DefaultFileName is used when an upstream resolver omits the file name.
const DefaultFileName = "terabox_file"

// FileDescriptor is the normalized result of resolving a share link through
// one of the upstream resolution APIs.
type FileDescriptor struct {
	Name      string
	SizeBytes int64 // 0 means "size unknown", never "empty file"

	// PrimaryLink is the plain CDN download URL. AlternateLink, when
	// present, is the resolver's fast CDN URL and is preferred for
	// transfers.
	PrimaryLink   string
	AlternateLink string

	SourceProvider string
	ResolverUsed   string
}

// Usable reports whether the descriptor carries at least one download link.
// A descriptor with both links empty must never reach callers.
func (d *FileDescriptor) Usable() bool {
	return d != nil && (d.PrimaryLink != "" || d.AlternateLink != "")
}

// HasFastLink reports whether the resolver provided a distinct fast link.
func (d *FileDescriptor) HasFastLink() bool {
	return d.AlternateLink != "" && d.AlternateLink != d.PrimaryLink
}

// BestLink returns the preferred download URL: the fast link when the
// resolver provided one, the plain link otherwise.
func (d *FileDescriptor) BestLink() string {
	if d.AlternateLink != "" {
		return d.AlternateLink
	}
	return d.PrimaryLink
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".mov":  true,
	".m4v":  true,
}

// IsVideo reports whether the file name carries a recognized video
// extension, which qualifies it for a web player link.
func (d *FileDescriptor) IsVideo() bool {
	return videoExtensions[strings.ToLower(path.Ext(d.Name))]
}

// ResourceLocator identifies a shared resource extracted from user input.
// It is request-scoped: created per inbound message and discarded once
// resolution completes.
type ResourceLocator struct {
	Provider string
	ShareID  string
	RawURL   string // original input when a full URL was supplied
}

// ShareURL returns a canonical share URL for the locator, synthesizing one
// from the share ID when the user sent a bare ID.
func (l ResourceLocator) ShareURL() string {
	if l.RawURL != "" {
		return l.RawURL
	}
	return fmt.Sprintf("https://www.terabox.com/s/%s", l.ShareID)
}
