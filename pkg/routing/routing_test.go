package routing

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowlist_LoadsServerRules(t *testing.T) {
	rules, err := LoadAllowlist("", "server")
	require.NoError(t, err)
	require.ElementsMatch(t, DefaultRules(), rules)
}

func TestAllowlist_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	_, err := LoadAllowlist(filepath.Join(dir, "missing.yaml"), "server")
	require.ErrorIs(t, err, ErrAllowlistNotFound)

	rules, err := LoadAllowlistOrDefault(filepath.Join(dir, "missing.yaml"), "server")
	require.NoError(t, err)
	require.Equal(t, DefaultRules(), rules)

	_, err = LoadAllowlist(write("v2.yaml", "version: 2\n"), "server")
	require.ErrorContains(t, err, "unsupported allowlist version")

	_, err = LoadAllowlist(write("entry.yaml", "version: 1\nentrypoints:\n  cli: []\n"), "server")
	require.ErrorContains(t, err, `entrypoint "server" not found`)

	_, err = LoadAllowlist(write("class.yaml", "version: 1\nentrypoints:\n  server:\n    - prefix: /ui\n      class: ui\n"), "")
	require.ErrorContains(t, err, "unknown class")

	_, err = LoadAllowlistOrDefault(write("slash.yaml", "version: 1\nentrypoints:\n  server:\n    - prefix: api\n      class: ops\n"), "server")
	require.ErrorContains(t, err, "must start with '/'")
}

func TestClassifier(t *testing.T) {
	c := NewClassifier(append(DefaultRules(), AllowlistRule{Prefix: "/api/v1/boards/export", Class: RouteClassOps}))

	require.Equal(t, RouteClassPublicAPI, c.ClassifyPath("/api/v1/boards/7/cards"))
	require.Equal(t, RouteClassOps, c.ClassifyPath("/api/v1/boards/export"))
	require.Equal(t, RouteClassOps, c.ClassifyPath("/health"))
	require.Equal(t, RouteClassUnknown, c.ClassifyPath("/healthz"))
	require.Equal(t, RouteClassUnknown, c.ClassifyPath("/api/v10"))

	require.True(t, c.IsOps(httptest.NewRequest("GET", "/debug/prometheus", nil)))
	require.False(t, c.IsOps(httptest.NewRequest("GET", "/api/v1/boards", nil)))
}

func TestHasPathPrefixOnBoundary(t *testing.T) {
	require.True(t, HasPathPrefixOnBoundary("/api/v1", "/api/v1"))
	require.True(t, HasPathPrefixOnBoundary("/api/v1/boards", "/api/v1"))
	require.False(t, HasPathPrefixOnBoundary("/api/v1boards", "/api/v1"))
	require.True(t, HasPathPrefixOnBoundary("/anything", "/"))
	require.False(t, HasPathPrefixOnBoundary("/x", ""))
}
