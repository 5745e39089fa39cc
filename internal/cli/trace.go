package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tca/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Action   string // optional - filter to one action label
}

// TimelineEntry is one journaled action in the trace timeline.
type TimelineEntry struct {
	Seq    int64           `json:"seq"`
	Origin string          `json:"origin"`
	Label  string          `json:"label"`
	Action json.RawMessage `json:"action"`
	State  json.RawMessage `json:"state,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int                  `json:"total_entries"`
	External     int                  `json:"external"`
	Effect       int                  `json:"effect"`
	Labels       []journal.LabelCount `json:"labels"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  journal.Session `json:"session"`
	Timeline []TimelineEntry `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled timeline of a session",
		Long: `Show every committed action of a journaled session in order, with its
origin (external send or effect), and per-label counts.

Verbose output includes the action payload and the state after each
commit.

Examples:
  tca trace --db ./tca.db --session 0190a6e2-...
  tca trace --db ./tca.db --session 0190a6e2-... --action counter.TimerTicked
  tca trace --db ./tca.db --session 0190a6e2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default $TCA_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action label")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	j, err := openJournal(formatter, db)
	if err != nil {
		return err
	}
	defer j.Close()

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
	entries, err := j.Entries(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read entries", err)
	}
	labels, err := j.LabelCounts(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to count labels", err)
	}

	result := TraceResult{
		Session:  sess,
		Timeline: buildTimeline(entries, opts.Action),
		Stats:    TraceStats{TotalEntries: len(entries), Labels: labels},
	}
	for _, e := range entries {
		if e.Origin == "effect" {
			result.Stats.Effect++
		} else {
			result.Stats.External++
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, Session: sess.ID.String()})
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTimeline converts journal entries to timeline entries, keeping only
// those labelled actionFilter when it is set.
func buildTimeline(entries []journal.Entry, actionFilter string) []TimelineEntry {
	timeline := []TimelineEntry{}
	for _, e := range entries {
		if actionFilter != "" && e.Label != actionFilter {
			continue
		}
		timeline = append(timeline, TimelineEntry{
			Seq:    e.Seq,
			Origin: e.Origin,
			Label:  e.Label,
			Action: e.Action,
			State:  e.State,
		})
	}
	return timeline
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.ID)
	fmt.Fprintf(w, "Feature: %s\n", result.Session.Feature)
	if result.Session.Scenario != "" {
		fmt.Fprintf(w, "Scenario: %s\n", result.Session.Scenario)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %-8s %s\n", e.Seq, e.Origin, e.Label)
		if verbose {
			fmt.Fprintf(w, "       Action: %s\n", e.Action)
			fmt.Fprintf(w, "       State:  %s\n", e.State)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  External:      %d\n", result.Stats.External)
	fmt.Fprintf(w, "  Effect:        %d\n", result.Stats.Effect)
	for _, lc := range result.Stats.Labels {
		fmt.Fprintf(w, "  %-30s %d\n", lc.Label, lc.Count)
	}
}
