package resolver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/types"
)

// Arbiter fans a locator out to every configured adapter and selects the
// single best descriptor. Adapters run concurrently; a failure from one
// never suppresses a success from another.
type Arbiter struct {
	adapters []Adapter
	rank     map[string]int
	log      *logger.Logger
}

// NewArbiter builds an arbiter. priority is the fixed adapter preference
// order used to break ties; adapters absent from it rank last.
func NewArbiter(adapters []Adapter, priority []string, log *logger.Logger) *Arbiter {
	rank := make(map[string]int, len(priority))
	for i, id := range priority {
		rank[id] = i
	}
	return &Arbiter{adapters: adapters, rank: rank, log: log}
}

// Adapter returns the configured adapter with the given ID, if any.
func (ar *Arbiter) Adapter(id string) (Adapter, bool) {
	for _, a := range ar.adapters {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// ResolveBest invokes every adapter, discards unusable descriptors, and
// ranks the remainder: a descriptor with a distinct fast link beats one
// with only a direct link, ties go to the higher-priority adapter. With
// zero usable results it fails with *AllResolversFailed carrying one
// diagnostic per adapter.
func (ar *Arbiter) ResolveBest(ctx context.Context, loc types.ResourceLocator) (*types.FileDescriptor, error) {
	return ar.resolveAmong(ctx, loc, ar.adapters)
}

// ResolveWith runs the arbitration restricted to a single named adapter.
// Used by the oversized-file retry path.
func (ar *Arbiter) ResolveWith(ctx context.Context, loc types.ResourceLocator, adapterID string) (*types.FileDescriptor, error) {
	a, ok := ar.Adapter(adapterID)
	if !ok {
		return nil, &AllResolversFailed{Errors: []*ResolverError{{
			AdapterID: adapterID,
			Kind:      KindTransport,
			Cause:     fmt.Errorf("adapter %q is not configured", adapterID),
		}}}
	}
	return ar.resolveAmong(ctx, loc, []Adapter{a})
}

func (ar *Arbiter) resolveAmong(ctx context.Context, loc types.ResourceLocator, adapters []Adapter) (*types.FileDescriptor, error) {
	type outcome struct {
		desc *types.FileDescriptor
		err  *ResolverError
	}

	results := make([]outcome, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			desc, err := a.Resolve(ctx, loc)
			if err != nil {
				re, ok := err.(*ResolverError)
				if !ok {
					re = &ResolverError{AdapterID: a.ID(), Kind: KindTransport, Cause: err}
				}
				ar.log.Warningf("Resolver %s failed for %s: %v", a.ID(), loc.ShareID, re.Cause)
				results[i] = outcome{err: re}
				return
			}
			results[i] = outcome{desc: desc}
		}(i, a)
	}
	wg.Wait()

	var usable []*types.FileDescriptor
	var failures []*ResolverError
	for _, r := range results {
		switch {
		case r.desc != nil && r.desc.Usable():
			usable = append(usable, r.desc)
		case r.err != nil:
			failures = append(failures, r.err)
		}
	}

	if len(usable) == 0 {
		return nil, &AllResolversFailed{Errors: failures}
	}

	sort.SliceStable(usable, func(i, j int) bool {
		fi, fj := usable[i].HasFastLink(), usable[j].HasFastLink()
		if fi != fj {
			return fi
		}
		return ar.adapterRank(usable[i].ResolverUsed) < ar.adapterRank(usable[j].ResolverUsed)
	})

	best := usable[0]
	ar.log.Infof("Arbiter selected %s for %s (%d usable, %d failed)",
		best.ResolverUsed, loc.ShareID, len(usable), len(failures))
	return best, nil
}

func (ar *Arbiter) adapterRank(id string) int {
	if r, ok := ar.rank[id]; ok {
		return r
	}
	return len(ar.rank) + 1
}
