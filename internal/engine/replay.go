package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
	"github.com/roach88/buildgov/internal/store"
)

// Divergence is one difference between the log and its replay.
type Divergence struct {
	Seq          int64  `json:"seq"`
	InvocationID string `json:"invocation_id"`
	Action       string `json:"action"`
	Field        string `json:"field"`
	Recorded     string `json:"recorded"`
	Replayed     string `json:"replayed"`
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Invocations int           `json:"invocations"`
	Seq         int64         `json:"seq"`
	State       project.State `json:"state"`
	Divergences []Divergence  `json:"divergences,omitempty"`
}

// Replay rebuilds the project in s from its seq 0 snapshot by re-running
// every logged invocation in seq order, without writing to s.
//
// Each replayed invocation must reproduce the recorded invocation id,
// completion id, notification ids and transfer ids; all are content
// addressed, so equal ids mean equal outcomes at equal seqs. The final state
// must equal the latest snapshot. Any difference is reported as a
// Divergence and Replay returns a REPLAY_DIVERGED runtime error alongside
// the report.
//
// Recipient hooks that ran when the log was written must be passed again
// through opts.
func Replay(ctx context.Context, s *store.Store, opts ...Option) (*ReplayReport, error) {
	e, err := newEngine(s, opts)
	if err != nil {
		return nil, err
	}
	header, err := s.ReadProject(ctx)
	if err != nil {
		return nil, err
	}
	if header.SpecHash != e.specHash {
		return nil, &RuntimeError{
			Code:    ErrCodeSpecMismatch,
			Message: "store was created with a different concept",
			Details: map[string]string{"store": header.SpecHash, "engine": e.specHash},
		}
	}

	initial, err := s.InitialSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var state project.State
	if err := json.Unmarshal(initial, &state); err != nil {
		return nil, fmt.Errorf("replay: decode initial snapshot: %w", err)
	}
	p, err := e.newProject(project.Identity(header.Administrator))
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if err := p.Restore(state); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	e.project = p
	e.clock = NewClock()

	log, err := readLog(ctx, s)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{}
	for _, inv := range log.invocations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Invocations++
		divs, err := e.replayOne(ctx, inv, log)
		if err != nil {
			return nil, fmt.Errorf("replay seq %d: %w", inv.Seq, err)
		}
		report.Divergences = append(report.Divergences, divs...)
	}
	report.Seq = e.clock.Current()
	report.State = p.State()

	_, latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	recorded, replayed, err := canonicalStates(latest, report.State)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(recorded, replayed) {
		report.Divergences = append(report.Divergences, Divergence{
			Seq:      report.Seq,
			Field:    "state",
			Recorded: string(recorded),
			Replayed: string(replayed),
		})
	}

	if len(report.Divergences) > 0 {
		first := report.Divergences[0]
		return report, &RuntimeError{
			Code:    ErrCodeReplayDiverged,
			Message: fmt.Sprintf("%d divergence(s), first at seq %d (%s)", len(report.Divergences), first.Seq, first.Field),
		}
	}
	return report, nil
}

type eventLog struct {
	invocations   []ir.Invocation
	completions   map[string]ir.Completion
	notifications map[string][]string
	transfers     map[string][]string
}

func readLog(ctx context.Context, s *store.Store) (*eventLog, error) {
	invs, err := s.ReadAllInvocations(ctx)
	if err != nil {
		return nil, err
	}
	comps, err := s.ReadAllCompletions(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.ReadNotifications(ctx, store.NotificationFilter{})
	if err != nil {
		return nil, err
	}
	transfers, err := s.ReadTransfers(ctx, store.TransferFilter{})
	if err != nil {
		return nil, err
	}

	log := &eventLog{
		invocations:   invs,
		completions:   make(map[string]ir.Completion, len(comps)),
		notifications: make(map[string][]string),
		transfers:     make(map[string][]string),
	}
	for _, c := range comps {
		log.completions[c.InvocationID] = c
	}
	for _, n := range notes {
		log.notifications[n.InvocationID] = append(log.notifications[n.InvocationID], n.ID)
	}
	for _, t := range transfers {
		log.transfers[t.InvocationID] = append(log.transfers[t.InvocationID], t.ID)
	}
	return log, nil
}

func (e *Engine) replayOne(ctx context.Context, inv ir.Invocation, log *eventLog) ([]Divergence, error) {
	var divs []Divergence
	diverge := func(field, recorded, replayed string) {
		divs = append(divs, Divergence{
			Seq:          inv.Seq,
			InvocationID: inv.ID,
			Action:       string(inv.ActionURI),
			Field:        field,
			Recorded:     recorded,
			Replayed:     replayed,
		})
	}

	id, err := ir.InvocationID(inv.FlowToken, inv.ActionURI, inv.Args, inv.Seq)
	if err != nil {
		return nil, err
	}
	if id != inv.ID {
		diverge("invocation_id", inv.ID, id)
	}

	// Seqs come from the log so a diverging entry does not shift the rest.
	e.clock.Reset(inv.Seq)
	res, _, err := e.execute(ctx, inv)
	if err != nil {
		return nil, err
	}

	comp, ok := log.completions[inv.ID]
	switch {
	case !ok:
		diverge("completion", "", res.Completion.OutputCase)
	case comp.ID != res.Completion.ID:
		diverge("completion", comp.OutputCase+" "+comp.ID, res.Completion.OutputCase+" "+res.Completion.ID)
	}

	notes := make([]string, len(res.Notifications))
	for i, n := range res.Notifications {
		notes[i] = n.ID
	}
	if !slices.Equal(log.notifications[inv.ID], notes) {
		diverge("notifications", fmt.Sprint(log.notifications[inv.ID]), fmt.Sprint(notes))
	}

	transfers := make([]string, len(res.Transfers))
	for i, t := range res.Transfers {
		transfers[i] = t.ID
	}
	if !slices.Equal(log.transfers[inv.ID], transfers) {
		diverge("transfers", fmt.Sprint(log.transfers[inv.ID]), fmt.Sprint(transfers))
	}
	return divs, nil
}

// canonicalStates re-encodes the stored snapshot through project.State so
// the comparison ignores formatting differences.
func canonicalStates(stored []byte, replayed project.State) ([]byte, []byte, error) {
	var recorded project.State
	if err := json.Unmarshal(stored, &recorded); err != nil {
		return nil, nil, fmt.Errorf("replay: decode latest snapshot: %w", err)
	}
	a, err := json.Marshal(recorded)
	if err != nil {
		return nil, nil, err
	}
	b, err := json.Marshal(replayed)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
