package otp

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/logging"
)

// Registry holds the live sessions of a process. Opening a session for a
// pair that already has one supersedes the older session.
type Registry struct {
	mu    sync.Mutex
	byID  map[string]*Session
	byKey map[Key]*Session

	cfg  Config
	idle time.Duration
	log  logging.Logger
}

// NewRegistry creates a registry whose sessions use cfg. Sessions untouched
// for longer than idle are removed by Sweep; zero idle keeps them forever.
func NewRegistry(cfg Config, idle time.Duration, log logging.Logger) *Registry {
	return &Registry{
		byID:  make(map[string]*Session),
		byKey: make(map[Key]*Session),
		cfg:   cfg.withDefaults(),
		idle:  idle,
		log:   log.With("module", "otp"),
	}
}

// Open starts a new session for key.
func (r *Registry) Open(ctx context.Context, key Key, address string) *Session {
	s := NewSession(key, address, r.cfg)

	r.mu.Lock()
	prev := r.byKey[key]
	r.byKey[key] = s
	r.byID[s.id] = s
	r.mu.Unlock()

	if prev != nil {
		prev.supersede()
		r.log.Info(ctx, "session superseded", "session_id", prev.id, "subject_id", key.SubjectID, "kind", key.Kind)
	}
	r.log.Debug(ctx, "session opened", "session_id", s.id, "subject_id", key.SubjectID, "kind", key.Kind)
	return s
}

// Get returns a session after checking its token.
func (r *Registry) Get(id, token string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	if err := s.Authorize(token); err != nil {
		return nil, err
	}
	return s, nil
}

// Discard aborts the session if still open and forgets it.
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	s, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		if r.byKey[s.key] == s {
			delete(r.byKey, s.key)
		}
	}
	r.mu.Unlock()

	if ok && s.State() != StateVerified {
		_ = s.Abort()
	}
}

// Len is the number of tracked sessions, superseded ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Sweep discards idle sessions and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.cfg.Now().Add(-r.idle)

	r.mu.Lock()
	var stale []string
	for id, s := range r.byID {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.Discard(id)
	}
	if len(stale) > 0 {
		r.log.Info(ctx, "idle sessions swept", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.idle <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(ctx)
		}
	}
}
