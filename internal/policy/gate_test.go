package policy

import (
	"testing"

	"teraBridgeBot/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	const threshold = 50 * 1000 * 1000

	cases := []struct {
		name         string
		size         int64
		threshold    int64
		haveFallback bool
		want         Action
	}{
		{"small file relays", 10 * 1000 * 1000, threshold, true, ActionDirectRelay},
		{"unknown size relays", 0, threshold, true, ActionDirectRelay},
		{"just below threshold relays", threshold - 1, threshold, true, ActionDirectRelay},
		{"at threshold retries with fallback", threshold, threshold, true, ActionAlternateRetry},
		{"oversized without fallback links only", threshold, threshold, false, ActionLinkOnly},
		{"huge file without fallback links only", 5 * 1000 * 1000 * 1000, threshold, false, ActionLinkOnly},
		{"zero threshold disables gate", 5 * 1000 * 1000 * 1000, 0, false, ActionDirectRelay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &types.FileDescriptor{Name: "f.mp4", SizeBytes: tc.size, PrimaryLink: "https://d.example/x"}
			assert.Equal(t, tc.want, Decide(d, tc.threshold, tc.haveFallback))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "direct relay", ActionDirectRelay.String())
	assert.Equal(t, "link only", ActionLinkOnly.String())
	assert.Equal(t, "alternate retry", ActionAlternateRetry.String())
}
