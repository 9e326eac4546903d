package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/izupress/internal/config"
)

// Global is passed to every command's Run method.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command and its global flags.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"izupress.yaml" type:"path"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	LogLevel string           `name:"log-level" env:"IZUPRESS_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Publish PublishCmd `cmd:"" help:"Publish the articles and blogs listed in the index document"`
	Render  RenderCmd  `cmd:"" help:"Render the blog pages of one exported file (no cache, no media)"`
	Serve   ServeCmd   `cmd:"" help:"Publish repeatedly on a schedule and when the source directory changes"`
	History HistoryCmd `cmd:"" help:"Show recent runs from the run history"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration and the default templates"`

	logger *slog.Logger
}

// AfterApply runs after flag parsing and sets up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.level()}))
	slog.SetDefault(c.logger)
	return nil
}

// Logger returns the logger configured by AfterApply.
func (c *CLI) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// level resolves --log-level (or IZUPRESS_LOG_LEVEL); -v wins when no level is given.
func (c *CLI) level() slog.Level {
	if c.LogLevel == "" {
		if c.Verbose {
			return slog.LevelDebug
		}
		return slog.LevelInfo
	}
	switch config.NormalizeLogLevel(c.LogLevel) {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the configuration named by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
