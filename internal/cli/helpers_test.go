package cli

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	arcadePath  = filepath.Join("..", "compiler", "testdata", "valid", "arcade.yaml")
	validDir    = filepath.Join("..", "compiler", "testdata", "valid")
	brokenPath  = filepath.Join("..", "compiler", "testdata", "invalid", "broken.yaml")
	scenarioDir = filepath.Join("..", "harness", "testdata", "scenarios")
	failingDir  = filepath.Join("..", "harness", "testdata", "failing")
)

// execute runs cmd with args and stdin, returning stdout and stderr.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
