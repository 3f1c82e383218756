package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/config"
	"github.com/imamik/rsjoin/internal/convergence"
)

// ErrJournalDisabled is returned by History when no journal bucket is set.
var ErrJournalDisabled = errors.New("run journal is not configured (set RSJOIN_JOURNAL_BUCKET)")

// RecentRuns is the read side of the run journal.
type RecentRuns interface {
	Recent(ctx context.Context, id cluster.Identity, limit int) ([]convergence.Report, error)
}

// newRecentRuns opens the journal for reading.
var newRecentRuns = func(ctx context.Context, rt *Runtime) (RecentRuns, error) {
	j, err := newObjectJournal(ctx, rt)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, ErrJournalDisabled
	}
	return j, nil
}

// History prints the most recent convergence runs for a cluster.
func History(ctx context.Context, configPath string, id cluster.Identity, limit int, jsonOutput bool) error {
	if err := id.Validate(); err != nil {
		return err
	}
	ctx, rt, err := setup(ctx, configPath, config.ComponentConverge)
	if err != nil {
		return err
	}
	runs, err := newRecentRuns(ctx, rt)
	if err != nil {
		return err
	}
	reports, err := runs.Recent(ctx, id, limit)
	if err != nil {
		return err
	}
	return printHistory(reports, jsonOutput)
}

func printHistory(reports []convergence.Report, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	if len(reports) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tRUN\tSTATE\tACTION\tRESULT\tDURATION\tERROR")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
			r.RunID, r.State, r.Action, r.Result, r.Duration(), r.Error)
	}
	return w.Flush()
}
