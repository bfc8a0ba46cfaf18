package identity

import (
	"context"
	"sync"
	"time"
)

// TokenVerifier turns a bearer token into a Session.
type TokenVerifier interface {
	Verify(token string) (Session, error)
}

// Listener is told the new user id after every identity change. An empty id
// means signed out.
type Listener func(ctx context.Context, userID string)

// Provider holds the identity of one storefront session and announces changes.
//
// Listeners run synchronously, in subscription order, while the provider
// serializes identity changes; a listener must not call SignIn or SignOut.
type Provider struct {
	verifier TokenVerifier
	now      func() time.Time

	changeMu sync.Mutex // serializes change + notification

	mu        sync.RWMutex
	session   *Session
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64
}

// NewProvider creates a signed-out provider.
func NewProvider(verifier TokenVerifier, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{
		verifier:  verifier,
		now:       now,
		listeners: make(map[uint64]Listener),
	}
}

// SignIn verifies token and makes its user current. Signing in again as the
// same user refreshes the expiry without notifying listeners.
func (p *Provider) SignIn(ctx context.Context, token string) (Session, error) {
	s, err := p.verifier.Verify(token)
	if err != nil {
		return Session{}, err
	}

	p.changeMu.Lock()
	defer p.changeMu.Unlock()

	p.mu.Lock()
	prev := p.userIDLocked()
	p.session = &s
	p.mu.Unlock()

	if prev != s.UserID {
		p.notify(ctx, s.UserID)
	}
	return s, nil
}

// SignOut drops the current identity. Listeners are notified only if a valid
// user was signed in.
func (p *Provider) SignOut(ctx context.Context) {
	p.changeMu.Lock()
	defer p.changeMu.Unlock()

	p.mu.Lock()
	prev := p.userIDLocked()
	p.session = nil
	p.mu.Unlock()

	if prev != "" {
		p.notify(ctx, "")
	}
}

// Expire drops a session whose expiry has passed and notifies listeners.
// It reports whether anything was dropped.
func (p *Provider) Expire(ctx context.Context) bool {
	p.changeMu.Lock()
	defer p.changeMu.Unlock()

	p.mu.Lock()
	if p.session == nil || p.session.Valid(p.now()) {
		p.mu.Unlock()
		return false
	}
	p.session = nil
	p.mu.Unlock()

	p.notify(ctx, "")
	return true
}

// Current returns the session if one is signed in and unexpired.
func (p *Provider) Current() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil || !p.session.Valid(p.now()) {
		return Session{}, false
	}
	return *p.session, true
}

// UserID returns the current user id, or "" when signed out or expired.
func (p *Provider) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userIDLocked()
}

func (p *Provider) userIDLocked() string {
	if p.session == nil || !p.session.Valid(p.now()) {
		return ""
	}
	return p.session.UserID
}

// Subscribe registers l and returns a function that removes it.
func (p *Provider) Subscribe(l Listener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.order = append(p.order, id)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.listeners, id)
			for i, v := range p.order {
				if v == id {
					p.order = append(p.order[:i], p.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (p *Provider) notify(ctx context.Context, userID string) {
	p.mu.RLock()
	ls := make([]Listener, 0, len(p.order))
	for _, id := range p.order {
		ls = append(ls, p.listeners[id])
	}
	p.mu.RUnlock()

	for _, l := range ls {
		l(ctx, userID)
	}
}
