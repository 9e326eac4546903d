package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/publish"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	File   string `arg:"" help:"Exported HTML file to render" type:"existingfile"`
	Output string `name:"category-out" short:"o" help:"Directory receiving the generated pages" default:"./render-out"`
}

func (r *RenderCmd) Run(_ *Global, root *CLI) error {
	cfg, err := r.config(root)
	if err != nil {
		return err
	}
	n, err := publish.RenderFile(context.Background(), cfg, r.File, r.Output, root.Logger())
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %s: %d files written to %s\n", r.File, n, r.Output)
	return nil
}

// config loads the configuration file when there is one and falls back to the
// example configuration otherwise, so single files render without any setup.
func (r *RenderCmd) config(root *CLI) (*config.Config, error) {
	if _, err := os.Stat(root.Config); errors.Is(err, fs.ErrNotExist) {
		cfg := config.Example()
		cfg.Templates.Dir = ""
		if err := config.ApplyDefaults(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return root.loadConfig()
}
