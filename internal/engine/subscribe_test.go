package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartridge/internal/ir"
	"github.com/roach88/cartridge/internal/testutil"
)

func TestSubscribe_ImmediateDelivery(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())

	var got []Snapshot
	e.Subscribe(func(s Snapshot) { got = append(got, s) })

	require.Len(t, got, 1)
	assert.Equal(t, "idle", got[0].CurrentStateID)
	assert.False(t, got[0].Started)

	e.Start()
	require.Len(t, got, 2)
	assert.True(t, got[1].Started)
	require.NotNil(t, got[1].LastStep)
	assert.Equal(t, CauseStart, got[1].LastStep.Cause)
}

func TestSubscribe_OnlyAcceptedTransitionsNotify(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())
	e.Start()

	count := 0
	e.Subscribe(func(Snapshot) { count++ })
	require.Equal(t, 1, count)

	e.Send("on_press", nil) // guard false
	e.Send("bogus", nil)    // no transition
	assert.Equal(t, 1, count)

	e.Send("insert_coin", nil) // self-loop still notifies
	assert.Equal(t, 2, count)
}

func TestSubscribe_RegistrationOrder(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())
	e.Start()

	var order []string
	e.Subscribe(func(Snapshot) { order = append(order, "first") })
	e.Subscribe(func(Snapshot) { order = append(order, "second") })
	order = nil

	e.Send("insert_coin", nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())
	e.Start()

	count := 0
	unsub := e.Subscribe(func(Snapshot) { count++ })
	e.Send("insert_coin", nil)
	assert.Equal(t, 2, count)

	unsub()
	unsub()
	e.Send("insert_coin", nil)
	assert.Equal(t, 2, count)
}

func TestSubscribe_UnsubscribeFromListener(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())
	e.Start()

	var once []string
	var unsub func()
	unsub = e.Subscribe(func(s Snapshot) {
		once = append(once, s.CurrentStateID)
		if s.LastStep != nil && s.LastStep.Event == "insert_coin" && unsub != nil {
			unsub()
		}
	})

	var other int
	e.Subscribe(func(Snapshot) { other++ })

	e.Send("insert_coin", nil)
	e.Send("insert_coin", nil)

	assert.Equal(t, []string{"idle", "idle"}, once, "immediate call plus the unsubscribing delivery")
	assert.Equal(t, 3, other, "other listeners are unaffected")
}

func TestSubscribe_ListenerCanReadSnapshot(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())
	e.Start()

	var seen []float64
	e.Subscribe(func(Snapshot) {
		seen = append(seen, e.Snapshot().Context["coins"].(float64))
	})
	e.Send("insert_coin", nil)

	assert.Equal(t, []float64{0, 1}, seen)
}

func TestSubscribe_ListenerOwnsSnapshot(t *testing.T) {
	e := newTestEngine(t, testutil.CoinsChart())
	e.Start()

	e.Subscribe(func(s Snapshot) { s.Context["coins"] = 42.0 })
	var second Snapshot
	e.Subscribe(func(s Snapshot) { second = s })

	e.Send("insert_coin", nil)
	assert.Equal(t, 1.0, second.Context["coins"])
	assert.Equal(t, 1.0, e.Snapshot().Context["coins"])
}

func raiseChart() *ir.Statechart {
	return &ir.Statechart{
		ID:      "raiser",
		Initial: "a",
		States: []ir.State{
			{ID: "a", Transitions: []ir.Transition{
				{Event: "go", Target: "b", Actions: []ir.Action{{Kind: ir.ActionRaise, Event: "next"}}},
				{Event: "ping", Target: "p", Actions: []ir.Action{{Kind: ir.ActionRaise, Event: "pong"}}},
			}},
			{ID: "b", Transitions: []ir.Transition{{Event: "next", Target: "c"}}},
			{ID: "c"},
			{ID: "p", Transitions: []ir.Transition{
				{Event: "pong", Target: "a", Actions: []ir.Action{{Kind: ir.ActionRaise, Event: "ping"}}},
			}},
		},
	}
}

func TestRaise_ProcessedAfterNotify(t *testing.T) {
	e := newTestEngine(t, raiseChart())
	e.Start()

	var states []string
	var causes []StepCause
	e.Subscribe(func(s Snapshot) {
		states = append(states, s.CurrentStateID)
		if s.LastStep != nil {
			causes = append(causes, s.LastStep.Cause)
		}
	})

	require.True(t, e.Send("go", nil))
	assert.Equal(t, []string{"a", "b", "c"}, states)
	assert.Equal(t, []StepCause{CauseStart, CauseEvent, CauseRaise}, causes)
	assert.Equal(t, "c", e.Snapshot().CurrentStateID)
}

func TestRaise_QuotaStopsCascade(t *testing.T) {
	e := newTestEngine(t, raiseChart(), WithMaxSteps(5))
	e.Start()

	require.True(t, e.Send("ping", nil))
	snap := e.Snapshot()
	// initial, ping, then five raised steps before the quota trips
	assert.Len(t, snap.History, 7)
	assert.Equal(t, "a", snap.CurrentStateID)

	// Each input gets a fresh quota.
	require.True(t, e.Send("ping", nil))
	assert.Len(t, e.Snapshot().History, 13)
}

func TestRaise_PayloadCarried(t *testing.T) {
	chart := &ir.Statechart{
		ID:      "carry",
		Initial: "a",
		Context: map[string]ir.VarSpec{"got": {Type: "number", Default: 0.0}},
		States: []ir.State{
			{ID: "a", Transitions: []ir.Transition{
				{Event: "go", Target: "b", Actions: []ir.Action{{Kind: ir.ActionRaise, Event: "store", Value: 7.0}}},
			}},
			{ID: "b", Transitions: []ir.Transition{
				{Event: "store", Target: "b", Actions: []ir.Action{{Kind: ir.ActionAssign, Var: "got", Params: map[string]any{"from": "payload"}}}},
			}},
		},
	}
	e := newTestEngine(t, chart)
	e.Start()
	e.Send("go", nil)

	assert.Equal(t, 7.0, e.Snapshot().Context["got"])
}
