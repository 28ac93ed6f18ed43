package service

import (
	"context"
	"sync"

	"github.com/hartleydigital/portal-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Auth event bus
// ============================================================

// AuthBus fans auth state changes out to subscribers. Both session
// contexts subscribe independently; publishing never blocks (slow
// subscribers miss events rather than stalling login).
type AuthBus struct {
	mu   sync.RWMutex
	subs []chan domain.AuthEvent
}

func NewAuthBus() *AuthBus {
	return &AuthBus{}
}

// Subscribe returns a channel receiving all future auth events.
func (b *AuthBus) Subscribe() <-chan domain.AuthEvent {
	ch := make(chan domain.AuthEvent, 8)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers an event to every subscriber, dropping on full buffers.
func (b *AuthBus) Publish(ev domain.AuthEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ============================================================
// Session context
// ============================================================

// ProfileResolver re-resolves the current profile for one realm from an
// access token. It returns nil (not an error) when there is no valid
// authenticated profile — the fail-closed default.
type ProfileResolver[P any] func(ctx context.Context, accessToken string) *P

// SessionContext is a process-wide session holder for one realm. The
// admin and client contexts are two instances of this one type,
// parameterized by profile kind and resolver, so the state machine
// cannot drift between them.
//
// States: Uninitialized (loading=true) → Authenticated (profile≠nil) |
// Anonymous (profile=nil), both with loading=false.
type SessionContext[P any] struct {
	realm   domain.Realm
	resolve ProfileResolver[P]
	logger  *zap.Logger

	mu      sync.RWMutex
	profile *P
	token   string
	loading bool
}

// NewSessionContext creates the context in the Uninitialized state.
func NewSessionContext[P any](realm domain.Realm, resolve ProfileResolver[P], logger *zap.Logger) *SessionContext[P] {
	return &SessionContext[P]{
		realm:   realm,
		resolve: resolve,
		logger:  logger,
		loading: true,
	}
}

// Start performs the initial resolution and subscribes to the auth
// event stream. It returns once the initial state is settled; event
// handling continues until ctx is cancelled.
func (s *SessionContext[P]) Start(ctx context.Context, bus *AuthBus, initialToken string) {
	events := bus.Subscribe()

	s.resolveAndSet(ctx, initialToken)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.handleEvent(ctx, ev)
			}
		}
	}()
}

func (s *SessionContext[P]) handleEvent(ctx context.Context, ev domain.AuthEvent) {
	switch ev.Type {
	case domain.EventSignedOut:
		// Forced transition to Anonymous regardless of prior state.
		s.mu.Lock()
		s.profile = nil
		s.token = ""
		s.loading = false
		s.mu.Unlock()
		s.logger.Debug("session: signed out", zap.String("realm", string(s.realm)))
	case domain.EventSignedIn, domain.EventTokenRefreshed:
		s.resolveAndSet(ctx, ev.AccessToken)
	}
}

func (s *SessionContext[P]) resolveAndSet(ctx context.Context, token string) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	var profile *P
	if token != "" {
		profile = s.resolve(ctx, token)
	}

	s.mu.Lock()
	s.profile = profile
	if profile != nil {
		s.token = token
	} else {
		s.token = ""
	}
	s.loading = false
	s.mu.Unlock()
}

// Profile returns the current profile (nil when anonymous) and whether
// a transition is in flight.
func (s *SessionContext[P]) Profile() (*P, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.loading
}

// SetAuthenticated installs a profile directly after a successful
// login, avoiding an extra resolution round-trip.
func (s *SessionContext[P]) SetAuthenticated(profile *P, token string) {
	s.mu.Lock()
	s.profile = profile
	s.token = token
	s.loading = false
	s.mu.Unlock()
}

// Logout clears the session. loading is raised before the provider
// call so no stale profile is ever visible mid-logout, and the profile
// is cleared even if the provider call fails.
func (s *SessionContext[P]) Logout(ctx context.Context, signOut func(ctx context.Context, token string) error) {
	s.mu.Lock()
	s.loading = true
	token := s.token
	s.mu.Unlock()

	if token != "" && signOut != nil {
		if err := signOut(ctx, token); err != nil {
			s.logger.Warn("session: provider sign-out failed",
				zap.String("realm", string(s.realm)),
				zap.Error(err),
			)
		}
	}

	s.mu.Lock()
	s.profile = nil
	s.token = ""
	s.loading = false
	s.mu.Unlock()
}
