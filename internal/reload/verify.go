package reload

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kofuk/homedns/internal/entity"
	"github.com/miekg/dns"
)

// Verifier asks the reloaded server for the A record of Name.
type Verifier struct {
	Server  string
	Name    string
	Timeout time.Duration
}

func (v *Verifier) Lookup(ctx context.Context) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(v.Name), dns.TypeA)
	m.RecursionDesired = false

	client := &dns.Client{Net: "udp", Timeout: v.Timeout}
	reply, _, err := client.ExchangeContext(ctx, m, withDefaultPort(v.Server))
	if err != nil {
		return nil, err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s: rcode %s", v.Name, dns.RcodeToString[reply.Rcode])
	}

	var addrs []string
	for _, rr := range reply.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	return addrs, nil
}

// Verify reports ErrRecordMismatch unless the server answers with addr.
func (v *Verifier) Verify(ctx context.Context, addr string) error {
	addrs, err := v.Lookup(ctx)
	if err != nil {
		return fmt.Errorf("verify %s at %s: %w", v.Name, v.Server, err)
	}
	if !slices.Contains(addrs, addr) {
		return fmt.Errorf("%w: %s at %s answers %v, want %s", entity.ErrRecordMismatch, v.Name, v.Server, addrs, addr)
	}
	return nil
}
