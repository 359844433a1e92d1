package routes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/routes"
)

func TestDefault_Loads(t *testing.T) {
	t.Parallel()

	table, err := routes.Default()
	require.NoError(t, err)
	assert.Equal(t, "/", table.Fallback())
	assert.Len(t, table.Routes(), 23)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	table, err := routes.Default()
	require.NoError(t, err)

	tests := []struct {
		path   string
		page   string
		params map[string]string
		roles  []string
	}{
		{"/", "dashboard", nil, nil},
		{"/users", "users", nil, []string{"admin"}},
		{"/users/", "users", nil, []string{"admin"}},
		{"/questions/create", "question-form", nil, []string{"admin", "teacher"}},
		{"/questions/42/edit", "question-form", map[string]string{"id": "42"}, []string{"admin", "teacher"}},
		{"/roles/3/permissions", "role-permissions", map[string]string{"id": "3"}, []string{"admin"}},
		{"/results/answers", "user-answers", nil, []string{"admin", "student", "teacher"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			r, params, ok := table.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.page, r.Page)
			assert.Equal(t, tt.params, params)
			assert.Equal(t, tt.roles, r.Roles)
		})
	}
}

func TestMatch_Unknown(t *testing.T) {
	t.Parallel()

	table, err := routes.Default()
	require.NoError(t, err)

	for _, p := range []string{"/nope", "/questions/1", "/roles//permissions"} {
		_, _, ok := table.Match(p)
		assert.False(t, ok, p)
	}
}

func TestLoad_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "routes: []"},
		{"no leading slash", "routes:\n  - {path: users, page: users}"},
		{"duplicate", "routes:\n  - {path: /, page: a}\n  - {path: /, page: b}"},
		{"unknown role", "routes:\n  - {path: /, page: a, roles: [janitor]}"},
		{"public with roles", "routes:\n  - {path: /, page: a, public: true, roles: [admin]}"},
		{"missing page", "routes:\n  - {path: /}"},
		{"bad fallback", "fallback: /home\nroutes:\n  - {path: /, page: a}"},
		{"dangling nav", "routes:\n  - {path: /, page: a}\nnav:\n  admin:\n    - label: x\n      items: [{name: y, href: /gone}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := routes.Load([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_NormalizesRoleCase(t *testing.T) {
	t.Parallel()

	table, err := routes.Load([]byte("routes:\n  - {path: /, page: a, roles: [Admin]}"))
	require.NoError(t, err)
	r, ok := table.Lookup("/")
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, r.Roles)
}
