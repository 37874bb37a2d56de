package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/buildgov/internal/ir"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const (
	invocationColumns   = `id, flow_token, action_uri, args, seq, security_context, spec_hash, engine_version, ir_version`
	completionColumns   = `id, invocation_id, output_case, result, seq, security_context`
	notificationColumns = `id, invocation_id, name, payload, idx, seq`
	transferColumns     = `id, invocation_id, recipient, amount, seq`
)

// queryAll runs query and scans every row. Returns an empty slice, never nil.
func queryAll[T any](ctx context.Context, db *sql.DB, what string, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}

// ReadFlow returns all invocations and completions for a flow token,
// ordered by seq ASC, id ASC.
func (s *Store) ReadFlow(ctx context.Context, flowToken string) ([]ir.Invocation, []ir.Completion, error) {
	invocations, err := queryAll(ctx, s.db, "invocations", scanInvocation, `
		SELECT `+invocationColumns+`
		FROM invocations
		WHERE flow_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, flowToken)
	if err != nil {
		return nil, nil, err
	}

	completions, err := queryAll(ctx, s.db, "completions", scanCompletion, `
		SELECT c.id, c.invocation_id, c.output_case, c.result, c.seq, c.security_context
		FROM completions c
		JOIN invocations i ON c.invocation_id = i.id
		WHERE i.flow_token = ?
		ORDER BY c.seq ASC, c.id COLLATE BINARY ASC
	`, flowToken)
	if err != nil {
		return nil, nil, err
	}

	return invocations, completions, nil
}

// ReadInvocation retrieves a single invocation by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadInvocation(ctx context.Context, id string) (ir.Invocation, error) {
	return scanInvocation(s.db.QueryRowContext(ctx, `
		SELECT `+invocationColumns+` FROM invocations WHERE id = ?
	`, id))
}

// ReadCompletion retrieves a single completion by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCompletion(ctx context.Context, id string) (ir.Completion, error) {
	return scanCompletion(s.db.QueryRowContext(ctx, `
		SELECT `+completionColumns+` FROM completions WHERE id = ?
	`, id))
}

// ReadCompletionFor returns the completion of an invocation.
// Returns sql.ErrNoRows if the invocation has none.
func (s *Store) ReadCompletionFor(ctx context.Context, invocationID string) (ir.Completion, error) {
	return scanCompletion(s.db.QueryRowContext(ctx, `
		SELECT `+completionColumns+` FROM completions WHERE invocation_id = ?
	`, invocationID))
}

// ReadAllInvocations returns every invocation ordered by seq ASC, id ASC.
func (s *Store) ReadAllInvocations(ctx context.Context) ([]ir.Invocation, error) {
	return queryAll(ctx, s.db, "invocations", scanInvocation, `
		SELECT `+invocationColumns+`
		FROM invocations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadAllCompletions returns every completion ordered by seq ASC, id ASC.
func (s *Store) ReadAllCompletions(ctx context.Context) ([]ir.Completion, error) {
	return queryAll(ctx, s.db, "completions", scanCompletion, `
		SELECT `+completionColumns+`
		FROM completions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// NotificationFilter narrows ReadNotifications. Zero values match everything.
type NotificationFilter struct {
	Name     string // exact notification name
	AfterSeq int64  // only notifications with seq > AfterSeq
	Limit    int
}

// ReadNotifications returns notifications in emission order.
func (s *Store) ReadNotifications(ctx context.Context, f NotificationFilter) ([]ir.Notification, error) {
	filter := And{Predicates: []Predicate{After{Column: "seq", Value: f.AfterSeq}}}
	if f.Name != "" {
		filter.Predicates = append(filter.Predicates, Equals{Column: "name", Value: ir.IRString(f.Name)})
	}
	query, args, err := selectQuery{
		Columns: notificationColumns,
		From:    "notifications",
		Filter:  filter,
		OrderBy: []string{"seq", "idx"},
		Limit:   f.Limit,
	}.compile()
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	return queryAll(ctx, s.db, "notifications", scanNotification, query, args...)
}

// ReadNotificationsFor returns the notifications of one invocation.
func (s *Store) ReadNotificationsFor(ctx context.Context, invocationID string) ([]ir.Notification, error) {
	return queryAll(ctx, s.db, "notifications", scanNotification, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE invocation_id = ?
		ORDER BY seq ASC, idx ASC, id COLLATE BINARY ASC
	`, invocationID)
}

// TransferFilter narrows ReadTransfers. Zero values match everything.
type TransferFilter struct {
	To       string // exact recipient
	AfterSeq int64  // only transfers with seq > AfterSeq
	Limit    int
}

// ReadTransfers returns transfers ordered by seq.
func (s *Store) ReadTransfers(ctx context.Context, f TransferFilter) ([]ir.Transfer, error) {
	filter := And{Predicates: []Predicate{After{Column: "seq", Value: f.AfterSeq}}}
	if f.To != "" {
		filter.Predicates = append(filter.Predicates, Equals{Column: "recipient", Value: ir.IRString(f.To)})
	}
	query, args, err := selectQuery{
		Columns: transferColumns,
		From:    "transfers",
		Filter:  filter,
		OrderBy: []string{"seq"},
		Limit:   f.Limit,
	}.compile()
	if err != nil {
		return nil, fmt.Errorf("read transfers: %w", err)
	}
	return queryAll(ctx, s.db, "transfers", scanTransfer, query, args...)
}

// LatestSnapshot returns the most recent state snapshot and its seq.
// Returns ErrNoProject if no snapshot exists.
func (s *Store) LatestSnapshot(ctx context.Context) (int64, []byte, error) {
	var seq int64
	var state string
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, state FROM snapshots ORDER BY seq DESC LIMIT 1
	`).Scan(&seq, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrNoProject
	}
	if err != nil {
		return 0, nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return seq, []byte(state), nil
}

// InitialSnapshot returns the seq 0 snapshot written by CreateProject.
func (s *Store) InitialSnapshot(ctx context.Context) ([]byte, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM snapshots WHERE seq = 0`).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoProject
	}
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	return []byte(state), nil
}

// LastSeq returns the highest seq recorded, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM invocations
			UNION ALL
			SELECT seq FROM completions
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// ListFlowTokens returns distinct flow tokens in order of first use.
func (s *Store) ListFlowTokens(ctx context.Context) ([]string, error) {
	return queryAll(ctx, s.db, "flow tokens", func(sc scanner) (string, error) {
		var token string
		if err := sc.Scan(&token); err != nil {
			return "", fmt.Errorf("scan flow token: %w", err)
		}
		return token, nil
	}, `
		SELECT flow_token FROM invocations
		GROUP BY flow_token
		ORDER BY MIN(seq) ASC, flow_token COLLATE BINARY ASC
	`)
}

func scanInvocation(sc scanner) (ir.Invocation, error) {
	var inv ir.Invocation
	var actionURI, argsJSON, secCtxJSON string

	if err := sc.Scan(
		&inv.ID, &inv.FlowToken, &actionURI, &argsJSON, &inv.Seq,
		&secCtxJSON, &inv.SpecHash, &inv.EngineVersion, &inv.IRVersion,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Invocation{}, err
		}
		return ir.Invocation{}, fmt.Errorf("scan invocation: %w", err)
	}

	inv.ActionURI = ir.ActionRef(actionURI)

	args, err := unmarshalObject("args", argsJSON)
	if err != nil {
		return ir.Invocation{}, err
	}
	inv.Args = args

	secCtx, err := unmarshalSecurityContext(secCtxJSON)
	if err != nil {
		return ir.Invocation{}, err
	}
	inv.SecurityContext = secCtx

	return inv, nil
}

func scanCompletion(sc scanner) (ir.Completion, error) {
	var comp ir.Completion
	var resultJSON, secCtxJSON string

	if err := sc.Scan(
		&comp.ID, &comp.InvocationID, &comp.OutputCase, &resultJSON, &comp.Seq, &secCtxJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Completion{}, err
		}
		return ir.Completion{}, fmt.Errorf("scan completion: %w", err)
	}

	result, err := unmarshalObject("result", resultJSON)
	if err != nil {
		return ir.Completion{}, err
	}
	comp.Result = result

	secCtx, err := unmarshalSecurityContext(secCtxJSON)
	if err != nil {
		return ir.Completion{}, err
	}
	comp.SecurityContext = secCtx

	return comp, nil
}

func scanNotification(sc scanner) (ir.Notification, error) {
	var n ir.Notification
	var payloadJSON string
	if err := sc.Scan(&n.ID, &n.InvocationID, &n.Name, &payloadJSON, &n.Index, &n.Seq); err != nil {
		return ir.Notification{}, fmt.Errorf("scan notification: %w", err)
	}
	payload, err := unmarshalObject("payload", payloadJSON)
	if err != nil {
		return ir.Notification{}, err
	}
	n.Payload = payload
	return n, nil
}

func scanTransfer(sc scanner) (ir.Transfer, error) {
	var t ir.Transfer
	if err := sc.Scan(&t.ID, &t.InvocationID, &t.To, &t.Amount, &t.Seq); err != nil {
		return ir.Transfer{}, fmt.Errorf("scan transfer: %w", err)
	}
	return t, nil
}
