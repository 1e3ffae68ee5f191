package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionUnmarshalObject(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"increment","var":"coins","value":2}`), &a))

	assert.Equal(t, ActionIncrement, a.Kind)
	assert.Equal(t, "coins", a.Var)
	assert.Equal(t, float64(2), a.Value)
}

func TestActionUnmarshalLegacyCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{`"LOG:hello world"`, Action{Kind: "log", Message: "hello world"}},
		{`"RAISE: landed"`, Action{Kind: "raise", Event: "landed"}},
		{`"PLAY_SOUND:coin.wav"`, Action{Kind: "play_sound", Message: "coin.wav"}},
		{`"RESET"`, Action{Kind: "reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var a Action
			require.NoError(t, json.Unmarshal([]byte(tt.input), &a))
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestActionListMixesForms(t *testing.T) {
	var actions []Action
	data := `["LOG:entered", {"kind":"assign","var":"armed","value":true}]`
	require.NoError(t, json.Unmarshal([]byte(data), &actions))

	require.Len(t, actions, 2)
	assert.Equal(t, "log", actions[0].Kind)
	assert.Equal(t, "assign", actions[1].Kind)
	assert.Equal(t, true, actions[1].Value)
}

func TestActionValidate(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		field  string
	}{
		{"missing kind", Action{}, "kind"},
		{"assign without var", Action{Kind: ActionAssign, Value: 1}, "var"},
		{"increment without var", Action{Kind: ActionIncrement}, "var"},
		{"toggle without var", Action{Kind: ActionToggle}, "var"},
		{"raise without event", Action{Kind: ActionRaise}, "event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.action.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}

	assert.Empty(t, (&Action{Kind: "play_sound"}).Validate(), "custom kinds own their parameters")
	assert.Empty(t, (&Action{Kind: ActionLog, Message: "hi"}).Validate())
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "assign(x=3)", Action{Kind: "assign", Var: "x", Value: 3}.String())
	assert.Equal(t, "toggle(on)", Action{Kind: "toggle", Var: "on"}.String())
	assert.Equal(t, "raise(jump)", Action{Kind: "raise", Event: "jump"}.String())
	assert.Equal(t, `log("hi")`, Action{Kind: "log", Message: "hi"}.String())
	assert.Equal(t, "reset", Action{Kind: "reset"}.String())
}
