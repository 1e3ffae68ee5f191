package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cartridge/internal/catalog"
	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/harness"
	"github.com/roach88/cartridge/internal/ir"
	"github.com/roach88/cartridge/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Charts   []string
	Database string
	Context  string
	Linger   time.Duration

	// IDs overrides the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Run statecharts on events read from stdin",
		Long: `Start one engine per --chart and feed it events from stdin.

Each input line is an event name, or a full cartridge.statechart.event
path when more than one chart runs, optionally followed by a JSON
payload:

  insert_coin
  arcade.machine.on_press {"player": 1}

Every snapshot is printed as it is published, including those produced
by timeouts. With --db (or store.path in the config file) the run is
journaled and can be checked later with "cartridge replay".

Examples:
  cartridge run ./cartridges --chart arcade.machine
  cartridge run ./cartridges --chart player --chart door --db ./runs.db
  echo jump | cartridge run ./platformer.cue --chart platformer.player --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngines(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Charts, "chart", nil, "statechart to run, as cartridge.chart or a unique chart id (repeatable)")
	_ = cmd.MarkFlagRequired("chart")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal runs to this SQLite database")
	cmd.Flags().StringVar(&opts.Context, "context", "", "JSON object of initial context overrides")
	cmd.Flags().DurationVar(&opts.Linger, "linger", 0, "keep running after input ends so timeouts can fire")

	return cmd
}

// runSession is one running entity.
type runSession struct {
	entity string
	cart   *ir.Cartridge
	chart  *ir.Statechart
}

func runEngines(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger()
	cfg := opts.cfg()

	loaded, err := loadValid(opts.RootOptions, path, f)
	if err != nil {
		return err
	}

	var overrides map[string]any
	if opts.Context != "" {
		if err := json.Unmarshal([]byte(opts.Context), &overrides); err != nil {
			return WrapExitError(ExitCommandError, "invalid --context", err)
		}
	}

	sessions := make([]runSession, 0, len(opts.Charts))
	seen := make(map[string]bool)
	for _, ref := range opts.Charts {
		cart, chart, err := harness.ResolveChart(loaded.Cartridges, ref)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --chart", err)
		}
		entity := cart.ID + "." + chart.ID
		if seen[entity] {
			return NewExitError(ExitCommandError, fmt.Sprintf("chart %s given twice", entity))
		}
		seen[entity] = true
		sessions = append(sessions, runSession{entity: entity, cart: cart, chart: chart})
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	registry := engine.NewRegistry(ids,
		engine.WithLogger(logger),
		engine.WithMaxSteps(cfg.Runtime.MaxSteps),
		engine.WithContext(overrides),
	)
	defer registry.StopAll()

	for _, s := range sessions {
		var spawnOpts []engine.Option
		if st != nil {
			sess, err := store.NewSession(ids, s.cart, s.chart.ID, s.entity, overrides)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create session", err)
			}
			if err := st.CreateSession(ctx, sess); err != nil {
				return WrapExitError(ExitCommandError, "failed to create session", err)
			}
			logger.Info("journaling", "entity", s.entity, "session", sess.ID, "db", dbPath)
			spawnOpts = append(spawnOpts, engine.WithJournal(st.Recorder(ctx, sess.ID)))
		}

		e, err := registry.Spawn(s.entity, s.chart, spawnOpts...)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create engine", err)
		}
		e.Subscribe(func(snap engine.Snapshot) {
			if snap.Started {
				printSnapshot(out, opts.Format, snap)
			}
		})
	}

	for _, id := range registry.IDs() {
		e, _ := registry.Get(id)
		e.Start()
	}

	cat := catalog.Build(loaded.Cartridges)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		accepted, err := sendLine(cat, registry, sessions, line)
		if err != nil {
			fmt.Fprintf(f.GetErrWriter(), "error: %v\n", err)
			continue
		}
		if !accepted {
			f.VerboseLog("ignored: %s", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	if opts.Linger > 0 {
		select {
		case <-time.After(opts.Linger):
		case <-ctx.Done():
		}
	}
	return nil
}

// sendLine parses "event [payload]" or "cartridge.chart.event [payload]"
// and delivers it.
func sendLine(cat *catalog.Catalog, engines *engine.Registry, sessions []runSession, line string) (bool, error) {
	name, rest, _ := strings.Cut(line, " ")

	var payload any
	if rest = strings.TrimSpace(rest); rest != "" {
		if err := json.Unmarshal([]byte(rest), &payload); err != nil {
			return false, fmt.Errorf("invalid payload for %s: %w", name, err)
		}
	}

	if strings.Count(name, ".") >= 2 {
		cartID, tail, _ := strings.Cut(name, ".")
		chartID, _, _ := strings.Cut(tail, ".")
		return catalog.Dispatch(cat, engines, cartID+"."+chartID, name, payload)
	}

	if len(sessions) != 1 {
		return false, fmt.Errorf("event %q is ambiguous with %d charts running; use cartridge.chart.event", name, len(sessions))
	}
	e, _ := engines.Get(sessions[0].entity)
	return e.Send(name, payload), nil
}

// printSnapshot writes one snapshot line. Listeners run under the engine
// lock, so this must not call back into the engine.
func printSnapshot(w io.Writer, format string, snap engine.Snapshot) {
	if format == "json" {
		data, err := json.Marshal(snap)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "%s\n", data)
		return
	}

	ctx, err := ir.MarshalCanonical(snap.Context)
	if err != nil {
		ctx = []byte("?")
	}
	suffix := ""
	if snap.Done {
		suffix = " (done)"
	}
	fmt.Fprintf(w, "%s: %s %s%s\n", snap.Entity, snap.CurrentStateID, ctx, suffix)
}

// lockedWriter serializes writes from engines whose timers fire on their
// own goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
