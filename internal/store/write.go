package store

import (
	"context"
	"fmt"

	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/ir"
)

// Session identifies one recorded engine run.
type Session struct {
	ID             string `db:"id" json:"id"`
	CartridgeID    string `db:"cartridge_id" json:"cartridgeId"`
	ChartID        string `db:"chart_id" json:"chartId"`
	EntityID       string `db:"entity_id" json:"entityId"`
	CartridgeHash  string `db:"cartridge_hash" json:"cartridgeHash"`
	Context        string `db:"context" json:"context"` // canonical JSON of the initial overrides
	RuntimeVersion string `db:"runtime_version" json:"runtimeVersion"`
	FormatVersion  string `db:"format_version" json:"formatVersion"`
}

// Overrides decodes the session's initial context overrides.
func (s Session) Overrides() (map[string]any, error) {
	return decodeContext(s.Context)
}

// NewSession describes a run of chartID from cart. The id comes from ids,
// so production sessions are UUIDv7 and sort by creation.
func NewSession(ids engine.IDGenerator, cart *ir.Cartridge, chartID, entity string, overrides map[string]any) (Session, error) {
	if cart.Statechart(chartID) == nil {
		return Session{}, fmt.Errorf("cartridge %q has no statechart %q", cart.ID, chartID)
	}
	hash, err := ir.CartridgeHash(cart)
	if err != nil {
		return Session{}, err
	}
	ctx, err := encodeContext(overrides)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:             ids.Generate(),
		CartridgeID:    cart.ID,
		ChartID:        chartID,
		EntityID:       entity,
		CartridgeHash:  hash,
		Context:        ctx,
		RuntimeVersion: ir.RuntimeVersion,
		FormatVersion:  ir.FormatVersion,
	}, nil
}

// CreateSession inserts a session row.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	err := s.exec(ctx, "insert-session",
		sess.ID, sess.CartridgeID, sess.ChartID, sess.EntityID,
		sess.CartridgeHash, sess.Context, sess.RuntimeVersion, sess.FormatVersion)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

// DeleteSession removes a session with its inputs and steps.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.exec(ctx, "delete-session", id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// WriteInput appends an input to a session. Rewriting an existing seq is a
// no-op.
func (s *Store) WriteInput(ctx context.Context, sessionID string, in engine.Input) error {
	payload, err := encodeValue(in.Payload)
	if err != nil {
		return err
	}
	if err := s.exec(ctx, "insert-input", sessionID, in.Seq, string(in.Kind), in.Event, payload, in.State); err != nil {
		return fmt.Errorf("insert input seq %d: %w", in.Seq, err)
	}
	return nil
}

// WriteStep appends a step to a session. Rewriting an existing seq is a
// no-op.
func (s *Store) WriteStep(ctx context.Context, sessionID string, step engine.Step) error {
	err := s.exec(ctx, "insert-step", sessionID, step.Seq, string(step.Cause), step.Event, step.From, step.To, step.Digest)
	if err != nil {
		return fmt.Errorf("insert step seq %d: %w", step.Seq, err)
	}
	return nil
}

// Recorder is an engine.Journal that writes to one session.
type Recorder struct {
	store   *Store
	ctx     context.Context
	session string
}

// Recorder returns a journal writing to sessionID.
func (s *Store) Recorder(ctx context.Context, sessionID string) *Recorder {
	return &Recorder{store: s, ctx: ctx, session: sessionID}
}

// RecordInput implements engine.Journal.
func (r *Recorder) RecordInput(in engine.Input) error {
	return r.store.WriteInput(r.ctx, r.session, in)
}

// RecordStep implements engine.Journal.
func (r *Recorder) RecordStep(step engine.Step) error {
	return r.store.WriteStep(r.ctx, r.session, step)
}

var _ engine.Journal = (*Recorder)(nil)
