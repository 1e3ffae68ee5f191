package testutil

import (
	"github.com/roach88/cartridge/internal/ir"
)

// CoinsChart is the idle/active machine: on_press moves idle to active only
// when coins > 0, insert_coin increments coins, and reset goes back to idle.
func CoinsChart() *ir.Statechart {
	return &ir.Statechart{
		ID:      "machine",
		Initial: "idle",
		Context: map[string]ir.VarSpec{
			"coins": {Type: "number", Default: 0.0},
		},
		States: []ir.State{
			{
				ID:   "idle",
				Kind: ir.KindInitial,
				Transitions: []ir.Transition{
					{
						Event:  "on_press",
						Target: "active",
						Guard:  ir.NewGuardTree(ir.Var("coins", ir.OpGT, 0)),
					},
					{
						Event:   "insert_coin",
						Target:  "idle",
						Actions: []ir.Action{{Kind: ir.ActionIncrement, Var: "coins"}},
					},
				},
			},
			{
				ID: "active",
				Transitions: []ir.Transition{
					{Event: "reset", Target: "idle"},
				},
			},
		},
	}
}

// TimerChart has a waiting state with a 100ms timeout that branches on
// ready: true goes to done, false goes to expired. leave exits waiting
// before the timeout.
func TimerChart() *ir.Statechart {
	return &ir.Statechart{
		ID:      "timer",
		Initial: "waiting",
		Context: map[string]ir.VarSpec{
			"ready": {Type: "boolean", Default: false},
		},
		States: []ir.State{
			{
				ID: "waiting",
				Timeout: &ir.Timeout{
					DelayMs:       100,
					GuardTree:     ir.NewGuardTree(ir.Var("ready", ir.OpEQ, true)),
					OnTrueTarget:  "done",
					OnFalseTarget: "expired",
				},
				Transitions: []ir.Transition{
					{Event: "leave", Target: "elsewhere"},
					{Event: "arm", Target: "waiting", Actions: []ir.Action{{Kind: ir.ActionAssign, Var: "ready", Value: true}}},
					{Event: "again", Target: "waiting"},
				},
			},
			{ID: "done", Kind: ir.KindFinal},
			{ID: "expired", Transitions: []ir.Transition{{Event: "retry", Target: "waiting"}}},
			{ID: "elsewhere", Transitions: []ir.Transition{{Event: "back", Target: "waiting"}}},
		},
	}
}

// PlatformerCartridge is a two-chart cartridge where jump leaves both
// grounded and running for airborne.
func PlatformerCartridge() ir.Cartridge {
	return ir.Cartridge{
		ID:    "platformer",
		Label: "Platformer Demo",
		Statecharts: []ir.Statechart{
			{
				ID:      "player",
				Initial: "grounded",
				Context: map[string]ir.VarSpec{"speed": {Type: "number", Default: 0.0}},
				States: []ir.State{
					{ID: "grounded", Transitions: []ir.Transition{
						{Event: "jump", Target: "airborne"},
						{Event: "run", Target: "running"},
					}},
					{ID: "running", Transitions: []ir.Transition{
						{Event: "jump", Target: "airborne"},
						{Event: "stop", Target: "grounded"},
					}},
					{ID: "airborne", Transitions: []ir.Transition{
						{Event: "land", Target: "grounded"},
					}},
				},
			},
			{
				ID:      "door",
				Initial: "closed",
				States: []ir.State{
					{ID: "closed", Transitions: []ir.Transition{{Event: "open", Target: "open"}}},
					{ID: "open", Transitions: []ir.Transition{{Event: "close", Target: "closed"}}},
				},
			},
		},
	}
}
