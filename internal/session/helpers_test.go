package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type mockAuth struct {
	loginFn        func(ctx context.Context, username, password string) (*backend.TokenPair, error)
	studentLoginFn func(ctx context.Context, login, password string) (*backend.TokenPair, error)
	refreshFn      func(ctx context.Context, refreshToken string) (*backend.TokenPair, error)
	meFn           func(ctx context.Context, accessToken string) (*backend.User, error)
}

func (m *mockAuth) Login(ctx context.Context, username, password string) (*backend.TokenPair, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuth) StudentLogin(ctx context.Context, login, password string) (*backend.TokenPair, error) {
	return m.studentLoginFn(ctx, login, password)
}

func (m *mockAuth) Refresh(ctx context.Context, refreshToken string) (*backend.TokenPair, error) {
	return m.refreshFn(ctx, refreshToken)
}

func (m *mockAuth) Me(ctx context.Context, accessToken string) (*backend.User, error) {
	return m.meFn(ctx, accessToken)
}

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func newSealer(t *testing.T) *session.Sealer {
	t.Helper()
	s, err := session.NewSealer(testSecret)
	require.NoError(t, err)
	return s
}

func user(id int64, roles ...string) *backend.User {
	u := &backend.User{ID: id, Username: "user"}
	for _, r := range roles {
		u.Roles = append(u.Roles, backend.Role{Name: r})
	}
	return u
}
