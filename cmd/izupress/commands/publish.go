package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/izupress/internal/eventstore"
	"git.home.luguber.info/inful/izupress/internal/publish"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Force  bool `short:"f" help:"Regenerate every page even when its inputs did not change"`
	DryRun bool `name:"dry-run" help:"Process every document but write no output"`
	Commit bool `help:"Commit the output directory when it is a git work tree"`
}

func (p *PublishCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(ctx, cfg, root.Logger())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	sum, err := rt.run(ctx, publish.Options{
		Trigger: "cli",
		Force:   p.Force,
		DryRun:  p.DryRun,
		Commit:  p.Commit,
	})
	if sum != nil {
		printSummary(os.Stdout, sum)
	}
	return err
}

// statusColor colors a run status for terminal output. Color is disabled
// automatically when stdout is not a terminal.
func statusColor(status string) string {
	switch status {
	case eventstore.StatusSuccess:
		return color.GreenString(status)
	case eventstore.StatusPartial:
		return color.YellowString(status)
	case eventstore.StatusFailed:
		return color.RedString(status)
	default:
		return status
	}
}

func printSummary(w io.Writer, sum *publish.Summary) {
	_, _ = fmt.Fprintf(w, "Run %s: %s\n", sum.RunID, statusColor(sum.Status))
	_, _ = fmt.Fprintf(w, "  documents: %d (%d unchanged, %d failed)\n",
		sum.Documents, sum.Unchanged, len(sum.Failures))
	_, _ = fmt.Fprintf(w, "  pages:     %d written, %d unchanged\n", sum.PagesWritten, sum.PagesSkipped)
	_, _ = fmt.Fprintf(w, "  media:     %d downloaded, %d written, %d reused\n",
		sum.Media.Downloaded, sum.Media.Written, sum.Media.Reused)
	if sum.Commit != "" {
		_, _ = fmt.Fprintf(w, "  commit:    %s\n", sum.Commit)
	}
	for _, f := range sum.Failures {
		_, _ = fmt.Fprintf(w, "  %s %s (%s): %v\n", color.RedString("failed"), f.Document, f.Kind, f.Err)
	}
	_, _ = fmt.Fprintf(w, "  took %s\n", sum.Duration.Round(time.Millisecond))
}
