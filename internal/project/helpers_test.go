package project

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	admin      Identity = "admin"
	contractor Identity = "A"
	regulator  Identity = "B"
)

// newTestProject returns an initialized project with budget 1000 and an
// event log attached.
func newTestProject(t *testing.T, opts ...Option) (*Project, *EventLog) {
	t.Helper()
	log := &EventLog{}
	p, err := New(admin, append([]Option{WithEventSink(log)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(admin, contractor, regulator, 1000))
	return p, log
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
