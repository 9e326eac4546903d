package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/izupress/internal/eventstore"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of runs to show" default:"10"`
	JSON  bool `name:"json" help:"Print the runs as JSON"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return ferrors.ConfigError("run history is disabled (set history.enabled)").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := recentRuns(context.Background(), store, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	printHistory(os.Stdout, runs)
	return nil
}

func recentRuns(ctx context.Context, store eventstore.Store, limit int) ([]eventstore.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	proj := eventstore.NewHistoryProjection(store, limit)
	if err := proj.Rebuild(ctx); err != nil {
		return nil, err
	}
	return proj.Recent(limit), nil
}

func printHistory(w io.Writer, runs []eventstore.RunSummary) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tTRIGGER\tSTATUS\tDOCS\tFAILED\tPAGES\tDURATION\tRUN")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Trigger,
			statusColor(r.Status),
			r.Published+r.Failed,
			r.Failed,
			r.PagesWritten,
			r.Duration.Round(time.Millisecond),
			r.RunID)
	}
	_ = tw.Flush()
}
