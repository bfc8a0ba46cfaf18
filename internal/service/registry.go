package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
)

// RegistryConfig bounds the number and lifetime of sessions.
type RegistryConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// Registry owns the live sessions of the service.
type Registry struct {
	deps   Deps
	cfg    RegistryConfig
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, cfg RegistryConfig) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		deps:     deps,
		cfg:      cfg,
		now:      deps.Now,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new signed-out session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.New().String()

	r.mu.Lock()
	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		r.logger.WarnContext(ctx, "session limit reached", slog.Int("max_sessions", r.cfg.MaxSessions))
		return nil, apperrors.Unavailable("session limit reached, try again later", nil)
	}
	s := NewSession(id, r.deps)
	r.sessions[id] = s
	r.mu.Unlock()

	sessionsActive.Inc()
	r.logger.DebugContext(ctx, "session created", slog.String("session_id", id))
	return s, nil
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.Closed() {
		return nil, apperrors.SessionNotFound(id)
	}
	s.Touch(r.now())
	return s, nil
}

// Close removes and tears down the session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return apperrors.SessionNotFound(id)
	}
	s.Close()
	sessionsActive.Dec()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than IdleTTL and signs out
// sessions whose identity has expired. It returns the number evicted.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	var idle, live []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			idle = append(idle, s)
			continue
		}
		live = append(live, s)
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	sessionsActive.Sub(float64(len(idle)))
	sessionsEvicted.Add(float64(len(idle)))

	expired := 0
	for _, s := range live {
		if s.Identity.Expire(ctx) {
			expired++
		}
	}

	if len(idle) > 0 || expired > 0 {
		r.logger.InfoContext(ctx, "session sweep",
			slog.Int("evicted", len(idle)),
			slog.Int("expired_identities", expired),
			slog.Int("live", len(live)),
		)
	}
	return len(idle)
}

// Run sweeps every SweepInterval until ctx is done, then closes every
// remaining session.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	sessionsActive.Sub(float64(len(all)))
}
