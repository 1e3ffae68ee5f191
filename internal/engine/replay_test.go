package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartridge/internal/testutil"
)

func TestReplay_ReproducesLiveRun(t *testing.T) {
	sched := testutil.NewManualScheduler()
	j := &MemoryJournal{}
	e := newTestEngine(t, testutil.TimerChart(), WithScheduler(sched), WithJournal(j))

	e.Start()
	sched.Advance(40 * time.Millisecond)
	e.Send("again", nil)
	e.Send("bogus", nil)
	sched.Advance(100 * time.Millisecond)
	e.Send("retry", nil)
	e.Send("arm", nil)
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "done", e.Snapshot().CurrentStateID)

	replayed, err := Replay(testutil.TimerChart(), j.Inputs, WithLogger(quietLogger()))
	require.NoError(t, err)

	div, diverged := CompareSteps(j.Steps, replayed)
	if diverged {
		t.Fatal(div.String())
	}
	assert.Len(t, replayed, len(j.Steps))
}

func TestReplay_ContextOverridesMatter(t *testing.T) {
	j := &MemoryJournal{}
	e := newTestEngine(t, testutil.CoinsChart(), WithJournal(j), WithContext(map[string]any{"coins": 3.0}))
	e.Start()
	e.Send("on_press", nil)

	same, err := Replay(testutil.CoinsChart(), j.Inputs, WithLogger(quietLogger()), WithContext(map[string]any{"coins": 3.0}))
	require.NoError(t, err)
	_, diverged := CompareSteps(j.Steps, same)
	assert.False(t, diverged)

	different, err := Replay(testutil.CoinsChart(), j.Inputs, WithLogger(quietLogger()))
	require.NoError(t, err)
	div, diverged := CompareSteps(j.Steps, different)
	require.True(t, diverged)
	assert.Equal(t, 0, div.Index, "initial digest already differs")
}

func TestReplay_Errors(t *testing.T) {
	_, err := Replay(testutil.CoinsChart(), nil)
	assert.ErrorContains(t, err, "does not begin with a start input")

	_, err = Replay(testutil.CoinsChart(), []Input{{Kind: InputEvent, Event: "x"}})
	assert.Error(t, err)

	_, err = Replay(testutil.CoinsChart(), []Input{{Kind: InputStart}, {Seq: 2, Kind: InputTimeout}}, WithLogger(quietLogger()))
	assert.ErrorContains(t, err, "no timeout armed")

	_, err = Replay(testutil.CoinsChart(), []Input{{Kind: InputStart}, {Seq: 2, Kind: InputStart}}, WithLogger(quietLogger()))
	assert.ErrorContains(t, err, "duplicate start")
}

func TestCompareSteps(t *testing.T) {
	a := []Step{
		{Seq: 1, Cause: CauseStart, To: "idle", Digest: "aaaaaaaaaaaaaaaa"},
		{Seq: 3, Cause: CauseEvent, Event: "go", From: "idle", To: "active", Digest: "bbbbbbbbbbbbbbbb"},
	}

	t.Run("identical", func(t *testing.T) {
		div, diverged := CompareSteps(a, a)
		assert.False(t, diverged)
		assert.Equal(t, "no divergence", div.String())
		assert.Equal(t, "no divergence", Divergence{}.String())
	})

	t.Run("seq ignored", func(t *testing.T) {
		b := []Step{a[0], a[1]}
		b[1].Seq = 99
		_, diverged := CompareSteps(a, b)
		assert.False(t, diverged)
	})

	t.Run("digest mismatch", func(t *testing.T) {
		b := []Step{a[0], a[1]}
		b[1].Digest = "cccccccccccccccc"
		div, diverged := CompareSteps(a, b)
		require.True(t, diverged)
		assert.Equal(t, 1, div.Index)
		assert.Equal(t, "step 1: recorded idle->active (bbbbbbbbbbbb), replayed idle->active (cccccccccccc)", div.String())
	})

	t.Run("missing step", func(t *testing.T) {
		div, diverged := CompareSteps(a, a[:1])
		require.True(t, diverged)
		assert.Equal(t, "step 1: replay missing recorded step to active", div.String())
	})

	t.Run("extra step", func(t *testing.T) {
		div, diverged := CompareSteps(a[:1], a)
		require.True(t, diverged)
		assert.Equal(t, "step 1: replay produced extra step to active", div.String())
	})
}
