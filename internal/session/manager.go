package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndktu/quizdash/internal/backend"
)

// ErrNoRoles is returned when the backend authenticates a user that holds no role.
var ErrNoRoles = errors.New("user has no roles")

// touchEvery bounds how often a read-only Restore rewrites UpdatedAt.
const touchEvery = time.Minute

// Authenticator is the slice of the backend the session layer needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*backend.TokenPair, error)
	StudentLogin(ctx context.Context, login, password string) (*backend.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error)
	Me(ctx context.Context, accessToken string) (*backend.User, error)
}

type backendAuth struct {
	c *backend.Client
}

// NewBackendAuthenticator adapts a backend client to Authenticator.
func NewBackendAuthenticator(c *backend.Client) Authenticator {
	return backendAuth{c: c}
}

func (b backendAuth) Login(ctx context.Context, username, password string) (*backend.TokenPair, error) {
	return b.c.Login(ctx, username, password)
}

func (b backendAuth) StudentLogin(ctx context.Context, login, password string) (*backend.TokenPair, error) {
	return b.c.StudentLogin(ctx, login, password)
}

func (b backendAuth) Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error) {
	return b.c.Refresh(ctx, refreshToken)
}

func (b backendAuth) Me(ctx context.Context, accessToken string) (*backend.User, error) {
	return b.c.WithToken(accessToken).Me(ctx)
}

// TeardownFunc runs after a session is deleted.
type TeardownFunc func(id uuid.UUID)

// Manager owns the session lifecycle: login, restore, refresh and teardown.
type Manager struct {
	repo   Repository
	auth   Authenticator
	sealer *Sealer
	idle   time.Duration
	now    func() time.Time

	mu         sync.Mutex
	refreshing map[uuid.UUID]struct{}
	teardown   []TeardownFunc
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIdleTimeout sets how long an untouched session survives SweepIdle.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idle = d
	}
}

// NewManager creates a Manager.
func NewManager(repo Repository, auth Authenticator, sealer *Sealer, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:       repo,
		auth:       auth,
		sealer:     sealer,
		idle:       7 * 24 * time.Hour,
		now:        time.Now,
		refreshing: make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnTeardown registers fn to run whenever a session is deleted.
func (m *Manager) OnTeardown(fn TeardownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown = append(m.teardown, fn)
}

// Login signs a staff member in.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	pair, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, uuid.New(), pair, time.Time{})
}

// LoginStudent signs a student in through HEMIS.
func (m *Manager) LoginStudent(ctx context.Context, login, password string) (*Session, error) {
	pair, err := m.auth.StudentLogin(ctx, login, password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, uuid.New(), pair, time.Time{})
}

// establish resolves the principal behind pair and persists the session.
// A zero createdAt means a new session.
func (m *Manager) establish(ctx context.Context, id uuid.UUID, pair *backend.TokenPair, createdAt time.Time) (*Session, error) {
	expires, err := AccessExpiry(pair.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := m.auth.Me(ctx, pair.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}

	principal := NewPrincipal(user)
	if len(principal.Roles) == 0 {
		return nil, ErrNoRoles
	}

	now := m.now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	s := &Session{
		ID: id,
		Tokens: Tokens{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    expires,
		},
		Principal: &principal,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	sealed, err := m.sealer.Seal(s.Tokens)
	if err != nil {
		return err
	}
	return m.repo.Save(ctx, &Record{
		ID:              s.ID,
		Principal:       *s.Principal,
		SealedTokens:    sealed,
		AccessExpiresAt: s.Tokens.ExpiresAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	})
}

func (m *Manager) load(ctx context.Context, id uuid.UUID) (*Session, error) {
	rec, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tokens, err := m.sealer.Open(rec.SealedTokens)
	if err != nil {
		return nil, err
	}
	principal := rec.Principal
	return &Session{
		ID:        rec.ID,
		Tokens:    tokens,
		Principal: &principal,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Restore resolves the session behind a cookie. An expired access token is
// refreshed once; if that fails the session is deleted. While another request
// refreshes the same session, Restore answers Loading.
func (m *Manager) Restore(ctx context.Context, id uuid.UUID) (*Session, State, error) {
	s, err := m.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, Unauthenticated, nil
	}
	if errors.Is(err, ErrSealBroken) {
		slog.Warn("dropping session with unreadable tokens", "session_id", id)
		m.Expire(ctx, id)
		return nil, Unauthenticated, nil
	}
	if err != nil {
		return nil, Unauthenticated, err
	}

	now := m.now().UTC()
	if !s.Tokens.Expired(now) {
		if now.Sub(s.UpdatedAt) >= touchEvery {
			s.UpdatedAt = now
			if err := m.save(ctx, s); err != nil {
				slog.Warn("failed to touch session", "session_id", id, "error", err)
			}
		}
		return s, Authenticated, nil
	}

	if !m.beginRefresh(id) {
		return nil, Loading, nil
	}
	defer m.endRefresh(id)

	refreshed, err := m.refresh(ctx, s)
	if err != nil {
		if isRejection(err) {
			slog.Info("session refresh rejected", "session_id", id, "error", err)
			m.Expire(ctx, id)
			return nil, Unauthenticated, nil
		}
		return nil, Unauthenticated, err
	}
	return refreshed, Authenticated, nil
}

// Refresh exchanges the refresh token now, regardless of access token expiry.
func (m *Manager) Refresh(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.beginRefresh(id) {
		return s, nil
	}
	defer m.endRefresh(id)

	refreshed, err := m.refresh(ctx, s)
	if err != nil && isRejection(err) {
		m.Expire(ctx, id)
	}
	return refreshed, err
}

func (m *Manager) refresh(ctx context.Context, s *Session) (*Session, error) {
	pair, err := m.auth.Refresh(ctx, s.Tokens.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing tokens: %w", err)
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = s.Tokens.RefreshToken
	}
	return m.establish(ctx, s.ID, pair, s.CreatedAt)
}

func (m *Manager) beginRefresh(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.refreshing[id]; busy {
		return false
	}
	m.refreshing[id] = struct{}{}
	return true
}

func (m *Manager) endRefresh(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refreshing, id)
}

// Logout deletes the session on user request.
func (m *Manager) Logout(ctx context.Context, id uuid.UUID) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.fireTeardown(id)
	return nil
}

// Expire deletes the session after an authentication failure. Errors are
// logged; the caller is already on its way to /login.
func (m *Manager) Expire(ctx context.Context, id uuid.UUID) {
	if err := m.repo.Delete(ctx, id); err != nil {
		slog.Error("failed to delete expired session", "session_id", id, "error", err)
	}
	m.fireTeardown(id)
}

// SweepIdle deletes sessions untouched for longer than the idle timeout.
func (m *Manager) SweepIdle(ctx context.Context) (int, error) {
	ids, err := m.repo.DeleteIdle(ctx, m.now().UTC().Add(-m.idle))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.fireTeardown(id)
	}
	return len(ids), nil
}

func (m *Manager) fireTeardown(id uuid.UUID) {
	m.mu.Lock()
	hooks := append([]TeardownFunc(nil), m.teardown...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}
}

// isRejection reports whether the backend refused the credentials, as
// opposed to being unreachable.
func isRejection(err error) bool {
	if errors.Is(err, ErrNoRoles) || errors.Is(err, ErrMalformedToken) {
		return true
	}
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}
