package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/cartridge/internal/compiler"
)

// loadErrorCode returns the code of a compiler load error, or E001.
func loadErrorCode(err error) string {
	var le *compiler.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return compiler.ErrCodeGeneric
}

// loadErrorFinding converts a load error into a validation finding so the
// validate command can report both kinds together.
func loadErrorFinding(err error) compiler.ValidationError {
	finding := compiler.ValidationError{
		Field:   "load",
		Code:    compiler.ErrCodeGeneric,
		Message: err.Error(),
	}
	var le *compiler.LoadError
	if errors.As(err, &le) {
		finding.Code = le.Code
		finding.Message = le.Message
		finding.File = le.File
		if le.Pos.IsValid() {
			finding.File = le.Pos.Filename()
			finding.Line = le.Pos.Line()
		}
	}
	return finding
}

// loadValid loads the cartridges under path and fails unless they load and
// validate without errors. Warnings are logged by the caller's formatter.
func loadValid(opts *RootOptions, path string, f *OutputFormatter) (*compiler.LoadResult, error) {
	loaded, errs := compiler.Load(path, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load cartridges [%s]", loadErrorCode(errs[0])), errs[0])
	}

	findings := loaded.Validate(compiler.Options{MaxDelay: opts.cfg().Runtime.MaxDelay})
	fatal, warnings := compiler.Split(findings)
	for _, w := range warnings {
		f.VerboseLog("warning: %s", w.Error())
	}
	if len(fatal) > 0 {
		return nil, WrapExitError(ExitFailure,
			fmt.Sprintf("cartridge validation failed with %d error(s)", len(fatal)), fatal[0])
	}
	return loaded, nil
}
