package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/buildgov/internal/ir"
)

// ProjectHeader identifies the project a store belongs to.
type ProjectHeader struct {
	Administrator string
	SpecHash      string
	EngineVersion string
}

// Record is everything produced by processing one invocation.
// Notifications, Transfers and State are only set for successful completions.
type Record struct {
	Invocation    ir.Invocation
	Completion    ir.Completion
	Notifications []ir.Notification
	Transfers     []ir.Transfer
	State         []byte // JSON project snapshot after the completion
}

// CreateProject writes the project header and its initial state snapshot at
// seq 0. It fails with ErrProjectExists if the store already has a project.
func (s *Store) CreateProject(ctx context.Context, header ProjectHeader, state []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create project: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM project`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if exists > 0 {
		return ErrProjectExists
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO project (id, administrator, spec_hash, engine_version)
		VALUES (1, ?, ?, ?)
	`, header.Administrator, header.SpecHash, header.EngineVersion); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (seq, state) VALUES (0, ?)
	`, string(state)); err != nil {
		return fmt.Errorf("create project: snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create project: commit: %w", err)
	}
	return nil
}

// Commit atomically writes an invocation, its completion and everything the
// completion produced. Either all rows are written or none are.
func (s *Store) Commit(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeInvocation(ctx, tx, rec.Invocation); err != nil {
		return err
	}
	if err := writeCompletion(ctx, tx, rec.Completion); err != nil {
		return err
	}
	for _, n := range rec.Notifications {
		if err := writeNotification(ctx, tx, n); err != nil {
			return err
		}
	}
	for _, t := range rec.Transfers {
		if err := writeTransfer(ctx, tx, t); err != nil {
			return err
		}
	}
	if rec.State != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (seq, state) VALUES (?, ?)
		`, rec.Completion.Seq, string(rec.State)); err != nil {
			return fmt.Errorf("commit: snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeInvocation(ctx context.Context, tx *sql.Tx, inv ir.Invocation) error {
	argsJSON, err := marshalObject("args", inv.Args)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	secCtxJSON, err := marshalSecurityContext(inv.SecurityContext)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invocations
		(id, flow_token, action_uri, args, seq, security_context, spec_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.FlowToken,
		string(inv.ActionURI),
		argsJSON,
		inv.Seq,
		secCtxJSON,
		inv.SpecHash,
		inv.EngineVersion,
		inv.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}

func writeCompletion(ctx context.Context, tx *sql.Tx, comp ir.Completion) error {
	resultJSON, err := marshalObject("result", comp.Result)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	secCtxJSON, err := marshalSecurityContext(comp.SecurityContext)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO completions
		(id, invocation_id, output_case, result, seq, security_context)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		comp.ID,
		comp.InvocationID,
		comp.OutputCase,
		resultJSON,
		comp.Seq,
		secCtxJSON,
	)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	return nil
}

func writeNotification(ctx context.Context, tx *sql.Tx, n ir.Notification) error {
	payloadJSON, err := marshalObject("payload", n.Payload)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notifications (id, invocation_id, name, payload, idx, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.InvocationID, n.Name, payloadJSON, n.Index, n.Seq)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

func writeTransfer(ctx context.Context, tx *sql.Tx, t ir.Transfer) error {
	if t.Amount < 0 {
		return fmt.Errorf("write transfer: negative amount %d", t.Amount)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transfers (id, invocation_id, recipient, amount, seq)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.InvocationID, t.To, t.Amount, t.Seq)
	if err != nil {
		return fmt.Errorf("write transfer: %w", err)
	}
	return nil
}

// ReadProject returns the project header. Returns ErrNoProject if the store
// is empty.
func (s *Store) ReadProject(ctx context.Context) (ProjectHeader, error) {
	var h ProjectHeader
	err := s.db.QueryRowContext(ctx, `
		SELECT administrator, spec_hash, engine_version FROM project WHERE id = 1
	`).Scan(&h.Administrator, &h.SpecHash, &h.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectHeader{}, ErrNoProject
	}
	if err != nil {
		return ProjectHeader{}, fmt.Errorf("read project: %w", err)
	}
	return h, nil
}
