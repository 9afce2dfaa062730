// Package session keeps the believed-authenticated user across runs. The
// cached copy is trusted first and reconciled with the backend afterwards.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bvrai/campaign-console/internal/store"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// Demo credentials install a local user without contacting the backend.
// They are a development shortcut, not a security boundary.
const (
	DemoEmail    = "admin@example.com"
	DemoPassword = "admin123"
	DemoToken    = "demo-token"
)

// DefaultAuthTimeout bounds every auth network call
const DefaultAuthTimeout = 5 * time.Second

// AuthAPI is the subset of the API used for authentication
type AuthAPI interface {
	Status(ctx context.Context) (*sparkai.AuthStatus, error)
	Login(ctx context.Context, email, password string) (*sparkai.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// CreditsAPI fetches the authoritative credit balance
type CreditsAPI interface {
	Get(ctx context.Context) (*sparkai.Credits, error)
}

// ErrMissingCredentials is returned by Login before any network call
var ErrMissingCredentials = errors.New("email and password are required")

// LoginError carries the server-supplied reason for a failed login
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// Options configures a Manager
type Options struct {
	AuthTimeout      time.Duration
	DemoLoginEnabled bool
}

// Manager owns the session state
type Manager struct {
	mu        sync.RWMutex
	state     State
	listeners []func(State)
	// epoch moves on every login, logout and rejection; backend answers
	// requested under an older epoch are dropped
	epoch uint64

	auth    AuthAPI
	credits CreditsAPI
	store   store.Store
	opts    Options
	logger  zerolog.Logger
}

// NewManager creates a session manager. Call CheckStatus to load the cache.
func NewManager(auth AuthAPI, credits CreditsAPI, st store.Store, opts Options, logger zerolog.Logger) *Manager {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	return &Manager{
		state:   State{Status: StatusUnknown},
		auth:    auth,
		credits: credits,
		store:   st,
		opts:    opts,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// Snapshot returns the current session state
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns the bearer token of the current session
func (m *Manager) Token() string {
	return m.Snapshot().Token
}

// OnChange registers a callback invoked after every state change
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) dispatch(e Event) State {
	st, _ := m.apply(e, 0, false, nil)
	return st
}

// dispatchIn applies e only while the session is still in epoch. persist
// runs under the same lock, so a logout can never be followed by a write
// from a stale answer.
func (m *Manager) dispatchIn(epoch uint64, e Event, persist func(State)) (State, bool) {
	return m.apply(e, epoch, true, persist)
}

func (m *Manager) apply(e Event, epoch uint64, guarded bool, persist func(State)) (State, bool) {
	m.mu.Lock()
	if guarded && m.epoch != epoch {
		st := m.state
		m.mu.Unlock()
		m.logger.Debug().Msg("Dropped stale session update")
		return st, false
	}
	prev := m.state
	m.state = Reduce(m.state, e)
	next := m.state
	if persist != nil {
		persist(next)
	}
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	if prev.Status != next.Status {
		m.logger.Debug().
			Str("from", string(prev.Status)).
			Str("to", string(next.Status)).
			Msg("Session status changed")
	}
	for _, fn := range listeners {
		fn(next)
	}
	return next, true
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// invalidate starts a new epoch before the session is replaced or dropped
func (m *Manager) invalidate() {
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()
}

// CheckStatus resolves the session for first render. With a cached session
// it returns immediately and reconciles in the background; the channel
// receives the reconciled state and is then closed. Without a cache it waits
// for the backend, bounded by the auth timeout, so it always settles.
func (m *Manager) CheckStatus(ctx context.Context) (State, <-chan State) {
	done := make(chan State, 1)
	epoch := m.currentEpoch()

	var demo sparkai.User
	if store.GetJSON(m.store, store.KeyDemoUser, &demo) {
		st := m.dispatch(Restored{Token: DemoToken, User: &demo, Demo: true})
		done <- st
		close(done)
		return st, done
	}

	token, _ := m.store.Get(store.KeyAuthToken)
	var cached sparkai.User
	hadCache := token != "" && store.GetJSON(m.store, store.KeyUser, &cached)

	if !hadCache {
		st := m.reconcile(ctx, epoch, false)
		done <- st
		close(done)
		return st, done
	}

	st := m.dispatch(Restored{Token: token, User: &cached})
	go func() {
		done <- m.reconcile(ctx, epoch, true)
		close(done)
	}()
	return st, done
}

// reconcile asks the backend about the session. The answer is dropped when
// a login, logout or rejection happened after epoch was read.
func (m *Manager) reconcile(ctx context.Context, epoch uint64, hadCache bool) State {
	ctx, cancel := context.WithTimeout(ctx, m.opts.AuthTimeout)
	defer cancel()

	status, err := m.auth.Status(ctx)
	var st State
	switch {
	case err != nil && sparkai.IsAuthenticationError(err):
		st, _ = m.dispatchIn(epoch, Denied{HadCache: hadCache}, nil)
	case err != nil:
		m.logger.Warn().Err(err).Bool("cached", hadCache).Msg("Auth status check failed, trusting local session")
		st, _ = m.dispatchIn(epoch, Unreachable{HadCache: hadCache}, nil)
	case status == nil || !status.Authenticated:
		st, _ = m.dispatchIn(epoch, Denied{HadCache: hadCache}, nil)
	default:
		st, _ = m.dispatchIn(epoch, Confirmed{User: status.User}, func(State) {
			if status.User != nil {
				m.persistUser(status.User)
			}
		})
	}
	return st
}

// Login authenticates and persists the session
func (m *Manager) Login(ctx context.Context, email, password string) (State, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return m.Snapshot(), ErrMissingCredentials
	}

	if m.opts.DemoLoginEnabled && strings.EqualFold(email, DemoEmail) && password == DemoPassword {
		user := DemoUser()
		m.invalidate()
		if err := m.store.Delete(store.KeyAuthToken, store.KeyUser); err != nil {
			return m.Snapshot(), err
		}
		if err := store.SetJSON(m.store, store.KeyDemoUser, user); err != nil {
			return m.Snapshot(), err
		}
		m.logger.Info().Msg("Demo login")
		return m.dispatch(LoggedIn{Token: DemoToken, User: user, Demo: true}), nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.AuthTimeout)
	defer cancel()

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return m.Snapshot(), &LoginError{Message: sparkai.Message(err), Err: err}
	}
	if res.Token == "" || res.User == nil {
		msg := res.Message
		if msg == "" {
			msg = "login response did not include a session"
		}
		return m.Snapshot(), &LoginError{Message: msg}
	}

	m.invalidate()
	if err := m.store.Delete(store.KeyDemoUser); err != nil {
		return m.Snapshot(), err
	}
	if err := m.store.Set(store.KeyAuthToken, res.Token); err != nil {
		return m.Snapshot(), err
	}
	m.persistUser(res.User)

	m.logger.Info().Str("user_id", res.User.ID).Msg("Logged in")
	return m.dispatch(LoggedIn{Token: res.Token, User: res.User}), nil
}

// Logout forgets the local session first, then tells the backend. Backend
// failures are logged and swallowed.
func (m *Manager) Logout(ctx context.Context) State {
	prev := m.Snapshot()
	m.invalidate()
	m.clearStorage()
	st := m.dispatch(LoggedOut{})

	if prev.Demo || prev.Token == "" {
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.AuthTimeout)
	defer cancel()
	if err := m.auth.Logout(ctx, prev.Token); err != nil {
		m.logger.Warn().Err(err).Msg("Backend logout failed")
	}
	return st
}

// HandleUnauthorized drops the session after any 401
func (m *Manager) HandleUnauthorized() {
	if !m.Snapshot().Authenticated() {
		return
	}
	m.invalidate()
	m.clearStorage()
	m.dispatch(LoggedOut{})
	m.logger.Warn().Msg("Session rejected by backend, login required")
}

// RefreshUser re-pulls the profile; failures leave the session untouched
func (m *Manager) RefreshUser(ctx context.Context) {
	cur := m.Snapshot()
	if !cur.Authenticated() || cur.Demo {
		return
	}
	epoch := m.currentEpoch()

	ctx, cancel := context.WithTimeout(ctx, m.opts.AuthTimeout)
	defer cancel()

	status, err := m.auth.Status(ctx)
	if err != nil || status == nil || !status.Authenticated || status.User == nil {
		m.logger.Debug().Err(err).Msg("User refresh skipped")
		return
	}
	m.dispatchIn(epoch, UserRefreshed{User: status.User}, func(State) {
		m.persistUser(status.User)
	})
}

// RefreshCredits updates the credit balance from the credits endpoint
func (m *Manager) RefreshCredits(ctx context.Context) error {
	cur := m.Snapshot()
	if !cur.Authenticated() || cur.Demo {
		return nil
	}

	epoch := m.currentEpoch()

	ctx, cancel := context.WithTimeout(ctx, m.opts.AuthTimeout)
	defer cancel()

	credits, err := m.credits.Get(ctx)
	if err != nil {
		return err
	}
	m.dispatchIn(epoch, CreditsUpdated{Balance: credits.Balance}, func(st State) {
		if st.User != nil {
			m.persistUser(st.User)
		}
	})
	return nil
}

func (m *Manager) persistUser(u *sparkai.User) {
	if err := store.SetJSON(m.store, store.KeyUser, u); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist user")
	}
}

func (m *Manager) clearStorage() {
	if err := m.store.Delete(store.KeyAuthToken, store.KeyUser, store.KeyDemoUser); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear local session")
	}
}

// DemoUser is the synthetic profile installed by the demo login
func DemoUser() *sparkai.User {
	return &sparkai.User{
		ID:             "demo-user",
		Email:          DemoEmail,
		FirstName:      "Demo",
		LastName:       "Admin",
		CompanyName:    "Spark AI Demo",
		CreditsBalance: 100,
	}
}

// Credits returns the current user's credit balance
func (m *Manager) Credits() float64 {
	return m.Snapshot().Credits()
}
