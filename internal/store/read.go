package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cartridge/internal/engine"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

type inputRow struct {
	SessionID string         `db:"session_id"`
	Seq       int64          `db:"seq"`
	Kind      string         `db:"kind"`
	Event     string         `db:"event"`
	Payload   sql.NullString `db:"payload"`
	State     string         `db:"state"`
}

type stepRow struct {
	SessionID string `db:"session_id"`
	Seq       int64  `db:"seq"`
	Cause     string `db:"cause"`
	Event     string `db:"event"`
	From      string `db:"from_state"`
	To        string `db:"to_state"`
	Digest    string `db:"digest"`
}

// ReadSession returns one session.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.get(ctx, "get-session", &sess, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// LatestSession returns the most recently created session.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	var sess Session
	err := s.get(ctx, "latest-session", &sess)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("read latest session: %w", err)
	}
	return sess, nil
}

// ListSessions returns every session in creation order.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := s.selectAll(ctx, "list-sessions", &sessions); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ReadInputs returns a session's inputs in seq order.
func (s *Store) ReadInputs(ctx context.Context, sessionID string) ([]engine.Input, error) {
	var rows []inputRow
	if err := s.selectAll(ctx, "list-inputs", &rows, sessionID); err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	inputs := make([]engine.Input, 0, len(rows))
	for _, r := range rows {
		payload, err := decodeValue(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("input seq %d: %w", r.Seq, err)
		}
		inputs = append(inputs, engine.Input{
			Seq:     r.Seq,
			Kind:    engine.InputKind(r.Kind),
			Event:   r.Event,
			Payload: payload,
			State:   r.State,
		})
	}
	return inputs, nil
}

// ReadSteps returns a session's steps in seq order.
func (s *Store) ReadSteps(ctx context.Context, sessionID string) ([]engine.Step, error) {
	var rows []stepRow
	if err := s.selectAll(ctx, "list-steps", &rows, sessionID); err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}

	steps := make([]engine.Step, 0, len(rows))
	for _, r := range rows {
		steps = append(steps, engine.Step{
			Seq:    r.Seq,
			Cause:  engine.StepCause(r.Cause),
			Event:  r.Event,
			From:   r.From,
			To:     r.To,
			Digest: r.Digest,
		})
	}
	return steps, nil
}

// CountSteps returns how many steps a session recorded.
func (s *Store) CountSteps(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := s.get(ctx, "count-steps", &n, sessionID); err != nil {
		return 0, fmt.Errorf("count steps: %w", err)
	}
	return n, nil
}
