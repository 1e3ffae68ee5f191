package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/ir"
)

func TestNewSession(t *testing.T) {
	cart := arcadeCartridge()
	sess, err := NewSession(engine.NewFixedGenerator("s1"), cart, "machine", "p1", map[string]any{"coins": 2, "name": "x"})
	require.NoError(t, err)

	hash, err := ir.CartridgeHash(cart)
	require.NoError(t, err)
	assert.Equal(t, Session{
		ID:             "s1",
		CartridgeID:    "arcade",
		ChartID:        "machine",
		EntityID:       "p1",
		CartridgeHash:  hash,
		Context:        `{"coins":2,"name":"x"}`,
		RuntimeVersion: ir.RuntimeVersion,
		FormatVersion:  ir.FormatVersion,
	}, sess)

	overrides, err := sess.Overrides()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"coins": 2.0, "name": "x"}, overrides)

	_, err = NewSession(engine.NewFixedGenerator("s2"), cart, "nope", "p1", nil)
	assert.ErrorContains(t, err, `no statechart "nope"`)
}

func TestSessions_ReadListLatest(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	_, err := s.LatestSession(ctx)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	createTestSession(t, s, "0001", "machine", nil)
	createTestSession(t, s, "0003", "timer", nil)
	createTestSession(t, s, "0002", "machine", nil)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	assert.Equal(t, []string{"0001", "0002", "0003"}, ids)

	latest, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0003", latest.ID)
	assert.Equal(t, "timer", latest.ChartID)

	_, err = s.ReadSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreateSession_Duplicate(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s, "dup", "machine", nil)
	assert.Error(t, s.CreateSession(t.Context(), sess))
}

func TestInputsAndSteps_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	createTestSession(t, s, "sess", "machine", nil)

	inputs := []engine.Input{
		{Seq: 1, Kind: engine.InputStart, State: ""},
		{Seq: 3, Kind: engine.InputEvent, Event: "insert_coin", Payload: map[string]any{"amount": 2, "from": "slot"}, State: "idle"},
		{Seq: 5, Kind: engine.InputEvent, Event: "bogus", State: "idle"},
	}
	for _, in := range inputs {
		require.NoError(t, s.WriteInput(ctx, "sess", in))
	}
	steps := []engine.Step{
		{Seq: 2, Cause: engine.CauseStart, To: "idle", Digest: "d1"},
		{Seq: 4, Cause: engine.CauseEvent, Event: "insert_coin", From: "idle", To: "idle", Digest: "d2"},
	}
	for _, st := range steps {
		require.NoError(t, s.WriteStep(ctx, "sess", st))
	}

	gotInputs, err := s.ReadInputs(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, gotInputs, 3)
	assert.Equal(t, map[string]any{"amount": 2.0, "from": "slot"}, gotInputs[1].Payload)
	assert.Nil(t, gotInputs[2].Payload)
	assert.Equal(t, engine.InputEvent, gotInputs[2].Kind)
	assert.Equal(t, "idle", gotInputs[2].State)

	gotSteps, err := s.ReadSteps(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, steps, gotSteps)

	n, err := s.CountSteps(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriteStep_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	createTestSession(t, s, "sess", "machine", nil)

	require.NoError(t, s.WriteStep(ctx, "sess", engine.Step{Seq: 1, Cause: engine.CauseStart, To: "idle", Digest: "a"}))
	require.NoError(t, s.WriteStep(ctx, "sess", engine.Step{Seq: 1, Cause: engine.CauseStart, To: "active", Digest: "b"}))

	steps, err := s.ReadSteps(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "idle", steps[0].To)
}

func TestWriteInput_UnknownSession(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteInput(t.Context(), "ghost", engine.Input{Seq: 1, Kind: engine.InputStart})
	assert.Error(t, err, "foreign key enforced")
}

func TestDeleteSession_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	createTestSession(t, s, "sess", "machine", nil)
	require.NoError(t, s.WriteInput(ctx, "sess", engine.Input{Seq: 1, Kind: engine.InputStart}))
	require.NoError(t, s.WriteStep(ctx, "sess", engine.Step{Seq: 2, Cause: engine.CauseStart, To: "idle", Digest: "d"}))

	require.NoError(t, s.DeleteSession(ctx, "sess"))

	inputs, err := s.ReadInputs(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, inputs)
	n, err := s.CountSteps(ctx, "sess")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecorder_JournalsLiveEngine(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	sess := createTestSession(t, s, "live", "machine", nil)

	mem := &engine.MemoryJournal{}
	e, err := engine.New(arcadeCartridge().Statechart("machine"),
		engine.WithLogger(quietLogger()),
		engine.WithJournal(teeJournal{s.Recorder(ctx, sess.ID), mem}))
	require.NoError(t, err)
	e.Start()
	e.Send("on_press", nil)
	e.Send("insert_coin", nil)
	e.Send("on_press", nil)

	inputs, err := s.ReadInputs(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, len(mem.Inputs), len(inputs))

	steps, err := s.ReadSteps(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, mem.Steps, steps)
	assert.Equal(t, "active", steps[len(steps)-1].To)
}

// teeJournal records to several journals.
type teeJournal []engine.Journal

func (t teeJournal) RecordInput(in engine.Input) error {
	for _, j := range t {
		if err := j.RecordInput(in); err != nil {
			return err
		}
	}
	return nil
}

func (t teeJournal) RecordStep(step engine.Step) error {
	for _, j := range t {
		if err := j.RecordStep(step); err != nil {
			return err
		}
	}
	return nil
}
