package cli

import (
	"fmt"
	"strings"

	"github.com/kofuk/homedns/internal/address"
	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/fetcher"
	"github.com/kofuk/homedns/internal/published"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func (a *App) addClientFlags(flags *pflag.FlagSet) {
	flags.StringVar(&a.overrides.EndpointURL, "endpoint", "", "URL that reports the external address")
	flags.StringVar(&a.overrides.AddressFile, "address-file", "", "Where the last known address is kept")
	flags.StringVar(&a.overrides.RemoteHost, "remote-host", "", "DNS host to send the address to")
	flags.StringVar(&a.overrides.RemoteUser, "remote-user", "", "Login on the DNS host")
	flags.IntVar(&a.overrides.RemotePort, "remote-port", 0, "SSH port of the DNS host")
	flags.StringVar(&a.overrides.RemotePath, "remote-path", "", "Destination file, or directory when ending in /")
	flags.StringVar(&a.overrides.TransferMethod, "method", "", "Transfer method (scp or ssh)")
	flags.StringVar(&a.overrides.SSHKeyFile, "ssh-key", "", "Private key for the DNS host")
}

func (a *App) newClientCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Fetch the external address and send it to the DNS host if it changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(a.cfg, force)
			if err != nil {
				return err
			}
			_, err = client.Run(cmd.Context())
			return err
		},
	}

	flags := cmd.Flags()
	a.addClientFlags(flags)
	flags.BoolVarP(&force, "force", "f", false, "Send the address even if it did not change")

	return cmd
}

func (a *App) newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print the current external address without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateFetch(); err != nil {
				return err
			}
			addr, err := fetcher.New(a.cfg.EndpointURL, a.cfg.FetchTimeout).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&a.overrides.EndpointURL, "endpoint", "", "URL that reports the external address")

	return cmd
}

func storedAddress(path string) (string, error) {
	addr, ok, err := address.NewStore(path).Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no address in %s", entity.ErrStorage, path)
	}
	return addr, nil
}

func checkAddress(cfg *config.Config, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return storedAddress(cfg.AddressFile)
}

func (a *App) newCheckCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the published A record with the stored address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RecordName == "" {
				return fmt.Errorf("%w: HOMEDNS_RECORD_NAME must be set", entity.ErrInvalidConfig)
			}
			want, err := checkAddress(a.cfg, addr)
			if err != nil {
				return err
			}
			if want, err = address.Canonical(want); err != nil {
				return err
			}

			resolver, err := published.NewDoHResolver(a.cfg.DoHProvider)
			if err != nil {
				return err
			}
			checker := &published.Checker{Resolver: resolver, Name: a.cfg.RecordName}

			got, err := checker.Check(cmd.Context(), want)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a.cfg.RecordName, strings.Join(got, ","))
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "address", "", "Expected address instead of the stored one")
	flags.StringVar(&a.overrides.AddressFile, "address-file", "", "Where the last known address is kept")
	flags.StringVar(&a.overrides.RecordName, "name", "", "Record name to look up")
	flags.StringVar(&a.overrides.DoHProvider, "provider", "", "DNS-over-HTTPS provider (cloudflare, google, quad9, dnspod)")

	return cmd
}
