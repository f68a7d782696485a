package cli

import (
	"context"
	"fmt"
	"log/slog"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/metadata"
	"github.com/spf13/cobra"
)

type App struct {
	LogLevel *slog.LevelVar

	envFile string
	// overrides collects flag values; only the non-zero ones replace what the
	// environment provided.
	overrides config.Config
	cfg       *config.Config
}

func (a *App) load(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("%w: load %s: %w", entity.ErrInvalidConfig, a.envFile, err)
		}
	} else {
		godotenv.Load()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := mergo.Merge(cfg, &a.overrides, mergo.WithOverride); err != nil {
		return fmt.Errorf("%w: apply flags: %w", entity.ErrInvalidConfig, err)
	}

	if cfg.Verbose && a.LogLevel != nil {
		a.LogLevel.Set(slog.LevelDebug)
	}
	slog.Debug("Loaded configuration", slog.String("command", cmd.Name()))

	a.cfg = cfg
	return nil
}

func (a *App) NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "homedns",
		Short:             "Keep a DNS A record pointed at the current external address",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "Load environment variables from this file instead of .env")
	flags.BoolVarP(&a.overrides.Verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		a.newClientCommand(),
		a.newFetchCommand(),
		a.newCheckCommand(),
		a.newServerCommand(),
		a.newRenderCommand(),
		a.newRestoreCommand(),
		a.newReloadCommand(),
		a.newDaemonCommand(),
		newVersionCommand(),
	)

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version (in machine-readable way) and exit",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), metadata.Revision)
			return nil
		},
	}
}

// Run executes the command line and returns the process exit status.
func Run(ctx context.Context, args []string, level *slog.LevelVar) int {
	app := &App{LogLevel: level}
	cmd := app.NewRootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	code := entity.ExitCodeOf(err)
	if err != nil {
		slog.Error("Command failed", slog.Any("error", err), slog.Int("exit_code", int(code)))
	}
	return int(code)
}
