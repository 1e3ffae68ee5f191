package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coinsGuard = `{"type":"group","operator":"and","children":[
	{"leftKey":"coins","operator":"gt","rightValue":0},
	{"leftKey":"lives","operator":"gte","rightValue":"1"}]}`

func guardJSON(t *testing.T, args ...string) (GuardResult, error) {
	t.Helper()
	out, _, err := execute(NewGuardCommand(&RootOptions{Format: "json"}), "", args...)
	var resp struct {
		Data GuardResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data, err
}

func TestGuard_Format(t *testing.T) {
	out, _, err := execute(NewGuardCommand(&RootOptions{Format: "text"}), "", coinsGuard)
	require.NoError(t, err)
	assert.Equal(t, "($coins > 0 AND $lives >= 1)\n", out)
}

func TestGuard_UndefinedVariable(t *testing.T) {
	res, err := guardJSON(t, coinsGuard, "--var", "coins")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "UndefinedVariable", res.Errors[0].Code)
	assert.Equal(t, "children[1].leftKey", res.Errors[0].Path)
}

func TestGuard_Evaluate(t *testing.T) {
	res, err := guardJSON(t, coinsGuard, "--context", `{"coins":2,"lives":1}`)
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.True(t, *res.Result)

	res, err = guardJSON(t, coinsGuard, "--context", `{"coins":0,"lives":1}`)
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.False(t, *res.Result)
}

func TestGuard_EmptyGroup(t *testing.T) {
	res, err := guardJSON(t, `{"type":"group","operator":"or","children":[]}`)
	require.Error(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "EmptyGroup", res.Errors[0].Code)
}

func TestGuard_Malformed(t *testing.T) {
	_, _, err := execute(NewGuardCommand(&RootOptions{Format: "text"}), "", `{"type":"bogus"}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
