package policy

import (
	"teraBridgeBot/internal/types"
)

// Action is the delivery decision for a resolved file.
type Action int

const (
	// ActionDirectRelay downloads the file and re-uploads it to the chat.
	ActionDirectRelay Action = iota
	// ActionLinkOnly sends download links instead of the file itself.
	ActionLinkOnly
	// ActionAlternateRetry re-resolves through the fallback resolver
	// before giving up on a direct relay.
	ActionAlternateRetry
)

func (a Action) String() string {
	switch a {
	case ActionDirectRelay:
		return "direct relay"
	case ActionLinkOnly:
		return "link only"
	case ActionAlternateRetry:
		return "alternate retry"
	default:
		return "unknown"
	}
}

// Decide picks the delivery action for a descriptor. Files below the size
// threshold relay directly; unknown sizes (0) are treated as small rather
// than rejected. Oversized files get one re-resolution through the
// fallback resolver when one is configured, otherwise links only.
func Decide(d *types.FileDescriptor, thresholdBytes int64, haveFallback bool) Action {
	if d.SizeBytes < thresholdBytes || thresholdBytes <= 0 {
		return ActionDirectRelay
	}
	if haveFallback {
		return ActionAlternateRetry
	}
	return ActionLinkOnly
}
