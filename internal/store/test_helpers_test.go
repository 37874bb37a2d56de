package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/buildgov/internal/ir"
)

// createTestStore opens a store in a temp dir that is closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRecord builds a record whose ids are derived from id and seq.
// Completions use seq+1 so the pair is ordered like the engine writes it.
func testRecord(id, flowToken, action, outputCase string, seq int64) Record {
	return Record{
		Invocation: ir.Invocation{
			ID:              id,
			FlowToken:       flowToken,
			ActionURI:       ir.ActionRef(action),
			Args:            ir.IRObject{"amount": ir.IRInt(seq)},
			Seq:             seq,
			SecurityContext: ir.SecurityContext{UserID: "admin", Permissions: []string{"administrator"}},
			SpecHash:        "test-hash",
			EngineVersion:   "0.1.0",
			IRVersion:       "1",
		},
		Completion: ir.Completion{
			ID:              "c-" + id,
			InvocationID:    id,
			OutputCase:      outputCase,
			Result:          ir.IRObject{},
			Seq:             seq + 1,
			SecurityContext: ir.SecurityContext{UserID: "admin", Permissions: []string{"administrator"}},
		},
	}
}
