package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alexanderramin/tasktimer/internal/app"
	"github.com/alexanderramin/tasktimer/internal/config"
)

// App carries the loaded configuration and the service graph built from it.
// Services are wired once flags are parsed, so --endpoint and friends take
// effect before anything connects.
type App struct {
	Config config.Config

	// Open builds the service graph. Defaults to app.Wire.
	Open func(cfg config.Config) (*app.Services, error)

	// IsInteractive reports whether stdin is a terminal. Nil means never.
	IsInteractive func() bool

	svc *app.Services
}

// NewRootCmd creates the top-level "tasktimer" command and registers all
// subcommands against the provided App.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tasktimer",
		Short:         "Start, pause and watch task timers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd.Flags())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("endpoint", "", "Backend base URL (overrides config)")
	flags.String("token", "", "Bearer token (overrides config)")
	flags.String("locale", "", "Message locale, e.g. en or es")

	root.AddCommand(
		newStartCmd(a),
		newPauseCmd(a),
		newStatusCmd(a),
		newListCmd(a),
		newDashboardCmd(a),
		newWatchCmd(a),
	)

	return root
}

// connect applies flag overrides and wires services on first use.
func (a *App) connect(flags *pflag.FlagSet) error {
	if a.svc != nil {
		return nil
	}
	if err := applyFlags(&a.Config, flags); err != nil {
		return err
	}

	open := a.Open
	if open == nil {
		open = func(cfg config.Config) (*app.Services, error) { return app.Wire(cfg) }
	}
	svc, err := open(a.Config)
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

// Close releases the service graph. Safe to call when nothing was wired;
// commands that fail skip PersistentPostRunE, so callers defer it.
func (a *App) Close() error {
	svc := a.svc
	a.svc = nil
	return svc.Close()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) now() time.Time {
	if a.svc != nil && a.svc.Now != nil {
		return a.svc.Now()
	}
	return time.Now()
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"endpoint", &cfg.API.Endpoint},
		{"token", &cfg.API.Token},
		{"locale", &cfg.Locale},
	}
	for _, o := range overrides {
		if !flags.Changed(o.name) {
			continue
		}
		v, err := flags.GetString(o.name)
		if err != nil {
			return fmt.Errorf("reading --%s: %w", o.name, err)
		}
		*o.dst = v
	}
	return nil
}
