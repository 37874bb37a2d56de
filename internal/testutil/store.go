package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/store"
)

// OpenStore opens a SQLite store in a fresh temp dir. It is closed when the
// test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "buildgov.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Args converts m into invocation args, failing the test on values the IR
// cannot carry.
func Args(t testing.TB, m map[string]any) ir.IRObject {
	t.Helper()
	obj, err := ir.ObjectFromMap(m)
	require.NoError(t, err)
	return obj
}
