package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cartridge/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional: one session only
	Force    bool   // replay even if the cartridge hash changed
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Sessions         []*store.ReplayResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <path>",
		Short: "Replay journaled runs and verify determinism",
		Long: `Re-execute journaled sessions against the cartridges under path and
compare every step's state digest with the recording.

A session recorded against a different version of its cartridge is
refused unless --force is given.

Exit codes:
  0 - Every replayed session reproduced its recording
  1 - A session diverged or its cartridge changed
  2 - Command error (database not found, etc.)

Examples:
  cartridge replay ./cartridges --db ./runs.db
  cartridge replay ./cartridges --db ./runs.db --session 0190...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay one session only")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "replay even when the cartridge hash differs")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	loaded, err := loadValid(opts.RootOptions, path, f)
	if err != nil {
		return err
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if err != nil {
			return f.Error("E005", err.Error(), nil)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	summary := ReplaySummary{Sessions: []*store.ReplayResult{}, AllDeterministic: true}
	var failures []string
	for _, sess := range sessions {
		cart := loaded.Cartridge(sess.CartridgeID)
		if cart == nil {
			failures = append(failures, fmt.Sprintf("session %s: cartridge %q not found under %s", sess.ID, sess.CartridgeID, path))
			summary.AllDeterministic = false
			continue
		}

		f.VerboseLog("replaying session %s (%s.%s)", sess.ID, sess.CartridgeID, sess.ChartID)
		res, err := store.Replay(ctx, st, sess.ID, cart, opts.Force, opts.logger())
		if err != nil {
			if !errors.Is(err, store.ErrCartridgeChanged) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
			}
			failures = append(failures, err.Error())
			summary.AllDeterministic = false
			continue
		}
		summary.Sessions = append(summary.Sessions, res)
		if !res.Identical {
			summary.AllDeterministic = false
			failures = append(failures, fmt.Sprintf("session %s diverged at %s", sess.ID, res.Divergence))
		}
	}
	summary.TotalSessions = len(sessions)

	text := func(w io.Writer) {
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions recorded.")
			return
		}
		for _, res := range summary.Sessions {
			mark := "✓"
			if !res.Identical {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s  %s.%s  inputs=%d steps=%d\n",
				mark, res.Session.ID, res.Session.CartridgeID, res.Session.ChartID, res.Inputs, res.Recorded)
		}
		for _, msg := range failures {
			fmt.Fprintf(w, "✗ %s\n", msg)
		}
	}

	if !summary.AllDeterministic {
		return f.Failure("REPLAY_DIVERGED", fmt.Sprintf("%d session(s) did not replay identically", len(failures)), summary, text)
	}
	return f.Success(summary, text)
}
