package cli

import (
	"fmt"
	"log/slog"

	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/fs"
	"github.com/kofuk/homedns/internal/reload"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func (a *App) addZoneFlags(flags *pflag.FlagSet) {
	flags.StringVar(&a.overrides.ServerAddressFile, "address-file", "", "Address file received from the client")
	flags.StringVar(&a.overrides.ZoneDir, "zone-dir", "", "Directory holding the template and zone files")
	flags.StringVar(&a.overrides.TemplateFile, "template", "", "Template file name")
	flags.StringVar(&a.overrides.WorkFile, "work-file", "", "Scratch file name used while deploying")
	flags.StringVar(&a.overrides.ZoneFile, "zone-file", "", "Zone file name loaded by the name server")
	flags.StringVar(&a.overrides.ZoneName, "zone", "", "Zone origin, passed to the reload command")
	flags.StringVar(&a.overrides.Placeholder, "placeholder", "", "Token replaced with the address")
}

func (a *App) newServerCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Render the zone for the received address and reload the name server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := newServer(cmd.Context(), a.cfg, force)
			if err != nil {
				return err
			}
			_, err = server.Run(cmd.Context())
			return err
		},
	}

	flags := cmd.Flags()
	a.addZoneFlags(flags)
	flags.BoolVarP(&force, "force", "f", false, "Deploy and reload even if the zone is up to date")

	return cmd
}

func (a *App) newRenderCommand() *cobra.Command {
	var (
		addr  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Deploy the zone for an address without reloading the name server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := newRenderer(cmd.Context(), a.cfg, force)
			if err != nil {
				return err
			}
			l, err := fs.Lock(a.cfg.ServerLockPath())
			if err != nil {
				return err
			}
			defer l.Unlock()

			if addr == "" {
				if addr, err = storedAddress(a.cfg.ServerAddressFile); err != nil {
					return err
				}
			}

			result, err := renderer.Render(cmd.Context(), addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "changed=%t serial=%d\n", result.Changed, result.Serial)
			return nil
		},
	}

	flags := cmd.Flags()
	a.addZoneFlags(flags)
	flags.StringVar(&addr, "address", "", "Address to render instead of the received one")
	flags.BoolVarP(&force, "force", "f", false, "Deploy even if the zone is up to date")

	return cmd
}

func (a *App) newRestoreCommand() *cobra.Command {
	var noReload bool

	cmd := &cobra.Command{
		Use:   "restore SNAPSHOT",
		Short: "Deploy a backup snapshot as the zone and reload the name server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := newRenderer(cmd.Context(), a.cfg, false)
			if err != nil {
				return err
			}
			l, err := fs.Lock(a.cfg.ServerLockPath())
			if err != nil {
				return err
			}
			defer l.Unlock()

			result, err := renderer.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if noReload {
				return nil
			}
			if err := reload.New(a.cfg, newExecutor(a.cfg)).Reload(cmd.Context()); err != nil {
				return err
			}
			slog.Info("Restored zone is live", slog.Any("serial", result.Serial))
			return nil
		},
	}

	flags := cmd.Flags()
	a.addZoneFlags(flags)
	flags.BoolVar(&noReload, "no-reload", false, "Only deploy the snapshot")

	return cmd
}

func (a *App) newReloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask the name server to reload the zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ReloadCommand == "" {
				return fmt.Errorf("%w: HOMEDNS_RELOAD_COMMAND must not be empty", entity.ErrInvalidConfig)
			}
			return reload.New(a.cfg, newExecutor(a.cfg)).Reload(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&a.overrides.ZoneName, "zone", "", "Zone origin, passed to the reload command")

	return cmd
}
