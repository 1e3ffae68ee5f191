package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/cartridge/internal/ir"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the cartridges loaded from a path.
type LoadResult struct {
	Cartridges []ir.Cartridge
	FileCount  int // number of cartridge source files found

	sources []source // parallel to Cartridges
}

type source struct {
	file  string
	lines lineFinder
}

// Cartridge returns the loaded cartridge with id, or nil.
func (r *LoadResult) Cartridge(id string) *ir.Cartridge {
	for i := range r.Cartridges {
		if r.Cartridges[i].ID == id {
			return &r.Cartridges[i]
		}
	}
	return nil
}

// Validate validates every loaded cartridge and attaches source file and
// line to each finding where known.
func (r *LoadResult) Validate(opts Options) []ValidationError {
	var all []ValidationError
	for i := range r.Cartridges {
		findings := Validate(&r.Cartridges[i], opts)
		if i < len(r.sources) {
			src := r.sources[i]
			for j := range findings {
				findings[j].File = src.file
				if src.lines != nil {
					findings[j].Line = src.lines.Line(findings[j].Field)
				}
			}
		}
		all = append(all, findings...)
	}
	return all
}

func (r *LoadResult) add(c *ir.Cartridge, src source) error {
	if existing := r.Cartridge(c.ID); existing != nil {
		return &LoadError{
			Code:    ErrCodeDuplicate,
			Message: fmt.Sprintf("cartridge %q is defined more than once", c.ID),
			File:    src.file,
		}
	}
	r.Cartridges = append(r.Cartridges, *c)
	r.sources = append(r.sources, src)
	return nil
}

// Load loads cartridges from a directory or a single file.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err)}}
	}
	if info.IsDir() {
		return LoadDir(path, mode)
	}
	return LoadFile(path)
}

// LoadDir loads every cartridge under dir. CUE files in dir form one CUE
// instance whose top-level "cartridge" struct holds cartridges keyed by
// id. JSON and YAML files anywhere under dir hold one cartridge each; their
// id defaults to the file name without extension.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("cartridge directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing cartridge directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, dataFiles, err := FindCartridgeFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 && len(dataFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no cartridge files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(cueFiles) + len(dataFiles)}
	var errs []error

	if len(cueFiles) > 0 {
		value, loadErr := loadCUEInstance(dir)
		if loadErr != nil {
			return result, []error{loadErr}
		}
		if stop := result.addCUE(value, mode, &errs); stop {
			return result, errs
		}
	}

	for _, path := range dataFiles {
		c, lines, err := decodeFile(path)
		if err == nil {
			err = result.add(c, source{file: path, lines: lines})
		}
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
	}

	if len(result.Cartridges) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no cartridges found"})
	}
	return result, errs
}

// LoadFile loads a single .cue, .json, .yaml or .yml file.
func LoadFile(path string) (*LoadResult, []error) {
	result := &LoadResult{FileCount: 1}

	if filepath.Ext(path) == ".cue" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: err.Error(), File: path}}
		}
		value := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := value.Err(); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), File: path}}
		}
		var errs []error
		result.addCUE(value, LoadModeCollectAll, &errs)
		if len(result.Cartridges) == 0 && len(errs) == 0 {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no cartridges found", File: path})
		}
		return result, errs
	}

	if !isDataFile(path) {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: "unsupported file type", File: path}}
	}
	c, lines, err := decodeFile(path)
	if err != nil {
		return nil, []error{err}
	}
	if err := result.add(c, source{file: path, lines: lines}); err != nil {
		return nil, []error{err}
	}
	return result, nil
}

func loadCUEInstance(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// addCUE compiles every field of the top-level "cartridge" struct. It
// reports whether loading should stop.
func (r *LoadResult) addCUE(value cue.Value, mode LoadMode, errs *[]error) bool {
	cartridges := value.LookupPath(cue.ParsePath("cartridge"))
	if !cartridges.Exists() {
		return false
	}

	iter, err := cartridges.Fields()
	if err != nil {
		*errs = append(*errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating cartridges: %v", err)})
		return mode == LoadModeFailFast
	}

	for iter.Next() {
		v := iter.Value()
		c, err := CompileCartridge(v)
		if err == nil {
			err = r.add(c, source{file: v.Pos().Filename(), lines: cueLines{v: v}})
		}
		if err != nil {
			*errs = append(*errs, convertCompileError(err, "cartridge."+iter.Label()))
			if mode == LoadModeFailFast {
				return true
			}
		}
	}
	return false
}

func decodeFile(path string) (*ir.Cartridge, lineFinder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), File: path}
	}

	var (
		c     *ir.Cartridge
		lines lineFinder
	)
	if filepath.Ext(path) == ".json" {
		c, err = decodeJSON(data)
	} else {
		var doc yamlLines
		c, doc.doc, err = decodeDocument(data)
		lines = doc
	}
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeDecode, Message: err.Error(), File: path}
	}

	if c.ID == "" {
		c.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, lines, nil
}

// FindCartridgeFiles walks dir and returns its .cue files and its .json,
// .yaml and .yml files. Directories named testdata or starting with a dot
// are skipped.
func FindCartridgeFiles(dir string) (cueFiles, dataFiles []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (name == "testdata" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case filepath.Ext(path) == ".cue":
			cueFiles = append(cueFiles, path)
		case isDataFile(path):
			dataFiles = append(dataFiles, path)
		}
		return nil
	})
	return cueFiles, dataFiles, err
}

func isDataFile(path string) bool {
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// convertCompileError converts a compiler error to a LoadError with
// position info.
func convertCompileError(err error, context string) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s: %s", context, ce.Field, ce.Message),
			Pos:     ce.Pos,
		}
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
