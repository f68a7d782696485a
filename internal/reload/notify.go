package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kofuk/homedns/internal/retry"
	"github.com/miekg/dns"
)

// Notifier tells secondary servers that the zone changed so they do not wait
// for the SOA refresh interval.
type Notifier struct {
	Targets []string
	Zone    string
	Timeout time.Duration
}

func withDefaultPort(target string) string {
	if _, _, err := net.SplitHostPort(target); err == nil {
		return target
	}
	return net.JoinHostPort(target, "53")
}

func (n *Notifier) notify(ctx context.Context, target string) error {
	m := new(dns.Msg)
	m.SetNotify(dns.Fqdn(n.Zone))

	client := &dns.Client{Net: "udp", Timeout: n.Timeout}
	_, err := retry.Retry(ctx, func() (retry.Void, error) {
		reply, _, err := client.ExchangeContext(ctx, m, target)
		if err != nil {
			return retry.V, err
		}
		if reply.Rcode != dns.RcodeSuccess {
			return retry.V, fmt.Errorf("rcode %s", dns.RcodeToString[reply.Rcode])
		}
		return retry.V, nil
	}, n.Timeout)
	return err
}

// Notify sends NOTIFY for the zone to every target. All targets are tried; the
// returned error joins the failures.
func (n *Notifier) Notify(ctx context.Context) error {
	var errs []error
	for _, target := range n.Targets {
		target = withDefaultPort(target)
		if err := n.notify(ctx, target); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", target, err))
			continue
		}
		slog.Info("Notified secondary", slog.String("target", target), slog.String("zone", n.Zone))
	}
	return errors.Join(errs...)
}
