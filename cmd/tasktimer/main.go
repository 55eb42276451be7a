package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/tasktimer/internal/app"
	"github.com/alexanderramin/tasktimer/internal/cli"
	"github.com/alexanderramin/tasktimer/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a := &cli.App{
		Config: cfg,
		// Diagnostic logs go to stderr when log_calls is enabled.
		Open: func(cfg config.Config) (*app.Services, error) {
			return app.Wire(cfg, app.WithLogOutput(os.Stderr))
		},
	}
	defer a.Close()

	// Detect interactive terminal for the watch prompt and spinners.
	a.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(a).ExecuteContext(ctx)
}
