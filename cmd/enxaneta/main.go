// Command enxaneta serves the castells question-answering pipeline.
//
// Usage:
//
//	enxaneta serve --config config.yaml
//	enxaneta route --config config.yaml "Quants 3d9f ha fet la Vella?"
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/castellsqa/enxaneta/pkg/config"
	"github.com/castellsqa/enxaneta/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP server."`
	Route   RouteCmd   `cmd:"" help:"Route a single question and print the decision."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("enxaneta %s\n", Version)
	return nil
}

func loadConfig(cli *CLI) (*config.Config, error) {
	config.LoadDotEnv()

	if cli.Config != "" {
		return config.Load(cli.Config)
	}

	cfg := &config.Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cli *CLI, cfg *config.Config) error {
	levelStr := cli.LogLevel
	if levelStr == "" {
		levelStr = cfg.LogLevel
	}
	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return err
	}

	output := os.Stderr
	if cli.LogFile != "" {
		f, err := os.OpenFile(cli.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		output = f
	}

	format := cli.LogFormat
	if format == "" {
		format = cfg.LogFormat
	}
	logger.Init(level, output, format)
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("enxaneta"),
		kong.Description("Question answering over the castells knowledge base."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
