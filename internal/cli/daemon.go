package cli

import (
	"context"

	"github.com/kofuk/homedns/internal/scheduler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *App) runDaemon(ctx context.Context, job scheduler.Job) error {
	status := &scheduler.Status{}
	sched := &scheduler.Scheduler{
		Spec:      a.cfg.Schedule,
		Job:       job,
		Immediate: true,
		Status:    status,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return sched.Run(ctx)
	})
	if a.cfg.StatusListen != "" {
		server := scheduler.NewStatusServer(a.cfg.StatusListen, status)
		eg.Go(func() error {
			return server.Start(ctx)
		})
	}
	return eg.Wait()
}

func (a *App) newDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run client or server cycles on a schedule",
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.overrides.Schedule, "schedule", "", "Cron expression or @every interval")
	flags.StringVar(&a.overrides.StatusListen, "listen", "", "Serve /healthz and /status on this address")

	client := &cobra.Command{
		Use:   "client",
		Short: "Run the client cycle on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(a.cfg, false)
			if err != nil {
				return err
			}
			return a.runDaemon(cmd.Context(), func(ctx context.Context) (any, error) {
				result, err := client.Run(ctx)
				return result, err
			})
		},
	}
	a.addClientFlags(client.Flags())

	server := &cobra.Command{
		Use:   "server",
		Short: "Run the server cycle on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := newServer(cmd.Context(), a.cfg, false)
			if err != nil {
				return err
			}
			return a.runDaemon(cmd.Context(), func(ctx context.Context) (any, error) {
				result, err := server.Run(ctx)
				return result, err
			})
		},
	}
	a.addZoneFlags(server.Flags())

	cmd.AddCommand(client, server)

	return cmd
}
