// Command eventflow inspects and replays events captured in a dead-letter
// database.
//
//	eventflow deadletter --db failed.db list --limit 10
//	eventflow deadletter --db failed.db redrive --url http://orders/api/events
//	eventflow -c eventflow.yaml deadletter redrive --every 1m
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
)

// CLI is the root command.
type CLI struct {
	Config  string   `short:"c" help:"Configuration file (YAML or JSON)" type:"path"`
	EnvFile []string `name:"env-file" help:"Environment files loaded before the configuration" default:".env"`
	Verbose bool     `short:"v" help:"Enable debug logging"`

	DeadLetter DeadLetterCmd `cmd:"" name:"deadletter" aliases:"dlq" help:"Inspect and replay dead-lettered events"`
}

// Global is bound into every command's Run method.
type Global struct {
	Logger *slog.Logger
	Config config.Config
	Out    io.Writer
}

func (c *CLI) global(out io.Writer) (*Global, error) {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.LoadEnv(c.EnvFile...); err != nil {
		return nil, err
	}
	cfg := config.New(nil)
	if c.Config != "" {
		var err error
		if cfg, err = config.FromFile(c.Config); err != nil {
			return nil, err
		}
	}
	return &Global{Logger: logger, Config: cfg, Out: out}, nil
}

func run(args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("eventflow"),
		kong.Description("Inspect and replay eventflow dead letters."),
		kong.Writers(out, os.Stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	g, err := cli.global(out)
	if err != nil {
		return err
	}
	return kctx.Run(g)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "eventflow:", err)
		os.Exit(1)
	}
}
