package transfer

import (
	"context"
	"sync"
	"time"
)

// SessionInfo tracks one requester's in-flight download.
type SessionInfo struct {
	RequesterID int64
	FileName    string
	StartTime   time.Time
	EndTime     *time.Time
	Completed   bool
}

// SessionRegistry tracks active transfers keyed by requester. A requester
// starting a new transfer overwrites their previous session record; the
// registry answers "what is this user downloading right now" plus rough
// lifetime counters.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*SessionInfo

	totalTransfers     int64
	completedTransfers int64

	maxAge          time.Duration
	cleanupInterval time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewSessionRegistry creates a registry and starts its background sweep of
// finished sessions older than maxAge.
func NewSessionRegistry(maxAge, cleanupInterval time.Duration) *SessionRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &SessionRegistry{
		sessions:        make(map[int64]*SessionInfo),
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		ctx:             ctx,
		cancel:          cancel,
	}
	go r.cleanupRoutine()
	return r
}

// Begin records a new transfer for the requester, replacing any previous
// session record they had.
func (r *SessionRegistry) Begin(requesterID int64, fileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[requesterID] = &SessionInfo{
		RequesterID: requesterID,
		FileName:    fileName,
		StartTime:   time.Now(),
	}
	r.totalTransfers++
}

// End marks the requester's current transfer finished.
func (r *SessionRegistry) End(requesterID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[requesterID]; ok && !s.Completed {
		now := time.Now()
		s.EndTime = &now
		s.Completed = true
		r.completedTransfers++
	}
}

// Active returns the requester's in-flight session, if any.
func (r *SessionRegistry) Active(requesterID int64) (*SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[requesterID]
	if !ok || s.Completed {
		return nil, false
	}
	copied := *s
	return &copied, true
}

// Stats returns lifetime transfer counters and the current active count.
func (r *SessionRegistry) Stats() (total, completed, active int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if !s.Completed {
			active++
		}
	}
	return r.totalTransfers, r.completedTransfers, active
}

func (r *SessionRegistry) cleanupRoutine() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *SessionRegistry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.maxAge)
	for id, s := range r.sessions {
		if s.Completed && s.EndTime != nil && s.EndTime.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}

// Stop terminates the background cleanup routine.
func (r *SessionRegistry) Stop() {
	r.cancel()
}
