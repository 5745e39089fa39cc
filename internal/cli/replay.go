package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tca/internal/harness"
	"github.com/roach88/tca/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string             `json:"session"`
	Feature       string             `json:"feature"`
	Scenario      string             `json:"scenario,omitempty"`
	Entries       int                `json:"entries"`
	Runs          int                `json:"runs"`
	Deterministic bool               `json:"deterministic"`
	Mismatches    []journal.Mismatch `json:"mismatches,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Replay every journaled session (or one with --session) through fresh
reducers, twice, and check that each run reproduces every journaled state.
Sessions are verified concurrently, up to TCA_REPLAY_CONCURRENCY at once.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  tca replay --db ./tca.db
  tca replay --db ./tca.db --session 0190a6e2-...
  tca replay --db ./tca.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default $TCA_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	j, err := openJournal(formatter, db)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			logger.Error("error closing journal", "error", closeErr)
		}
	}()

	var sessions []journal.Session
	if opts.Session != "" {
		id, err := parseSessionID(formatter, opts.Session)
		if err != nil {
			return err
		}
		sess, err := j.Session(ctx, id)
		if errors.Is(err, journal.ErrSessionNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "session not found", err)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read session", err)
		}
		sessions = []journal.Session{sess}
	} else {
		sessions, err = j.Sessions(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to list sessions", err)
		}
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return formatter.JSON(CLIResponse{Status: "ok", Data: ReplayResult{
				Sessions:         []ReplaySessionResult{},
				AllDeterministic: true,
			}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in journal.")
		return nil
	}

	// Each goroutine writes only its own slot, so results keep session order.
	results := make([]ReplaySessionResult, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Config.ReplayConcurrency, 1))
	for i, sess := range sessions {
		g.Go(func() error {
			results[i] = replaySession(gctx, j, sess)
			logger.Debug("session verified",
				"session", sess.ID,
				"feature", sess.Feature,
				"deterministic", results[i].Deterministic)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "replay interrupted", err)
	}

	result := ReplayResult{Sessions: results, TotalSessions: len(results), AllDeterministic: true}
	for _, r := range results {
		if !r.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.AllDeterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDeterminism, Message: "determinism verification failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result, opts.Verbose)
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return &ExitError{Code: ExitFailure, Message: "determinism verification failed", Reported: true}
	}
	return nil
}

// replaySession verifies one session. Lookup and read failures count as
// non-deterministic with Error set, so one bad session does not hide the
// rest.
func replaySession(ctx context.Context, j *journal.Journal, sess journal.Session) ReplaySessionResult {
	r := ReplaySessionResult{
		Session:  sess.ID.String(),
		Feature:  sess.Feature,
		Scenario: sess.Scenario,
	}
	feature, err := harness.Lookup(sess.Feature)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	report, err := feature.Verify(ctx, j, sess.ID)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Entries = report.Entries
	r.Runs = report.Runs
	r.Mismatches = report.Mismatches
	r.Deterministic = report.OK()
	return r
}

func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s (%s)\n", status, s.Session, s.Feature)
		if verbose && s.Scenario != "" {
			fmt.Fprintf(w, "  Scenario: %s\n", s.Scenario)
		}
		fmt.Fprintf(w, "  Entries: %d, runs: %d\n", s.Entries, s.Runs)
		if s.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", s.Error)
		}
		for _, m := range s.Mismatches {
			if m.Err != "" {
				fmt.Fprintf(w, "  run %d seq %d %s: %s\n", m.Run, m.Seq, m.Label, m.Err)
				continue
			}
			fmt.Fprintf(w, "  run %d seq %d %s: state differs\n", m.Run, m.Seq, m.Label)
			if verbose {
				fmt.Fprintf(w, "    want: %s\n    got:  %s\n", m.Want, m.Got)
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}
