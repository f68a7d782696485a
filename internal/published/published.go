package published

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kofuk/homedns/internal/entity"
	"github.com/likexian/doh"
	"github.com/likexian/doh/dns"
)

// Resolver returns the A records currently published for a name.
type Resolver interface {
	Resolve(ctx context.Context, name string) ([]string, error)
}

type dohResolver struct {
	providers []int
}

var providers = map[string]int{
	"cloudflare": int(doh.CloudflareProvider),
	"dnspod":     int(doh.DNSPodProvider),
	"google":     int(doh.GoogleProvider),
	"quad9":      int(doh.Quad9Provider),
}

// NewDoHResolver resolves over DNS-over-HTTPS with the named provider.
func NewDoHResolver(provider string) (Resolver, error) {
	p, ok := providers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown DoH provider %q", entity.ErrInvalidConfig, provider)
	}
	return &dohResolver{providers: []int{p}}, nil
}

func (r *dohResolver) Resolve(ctx context.Context, name string) ([]string, error) {
	c := doh.Use(asProviders(doh.CloudflareProvider, r.providers)...)
	defer c.Close()

	resp, err := c.Query(ctx, dns.Domain(name), dns.TypeA)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, a := range resp.Answer {
		// 1 is the A record type
		if a.Type == 1 {
			addrs = append(addrs, a.Data)
		}
	}
	return addrs, nil
}

// asProviders converts provider IDs to doh's unexported provider type, taking
// the type from like.
func asProviders[T ~uint](like T, ids []int) []T {
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = T(id)
	}
	return out
}

// Checker compares what resolvers on the internet see with the stored address.
type Checker struct {
	Resolver Resolver
	Name     string
}

func (c *Checker) Check(ctx context.Context, addr string) ([]string, error) {
	published, err := c.Resolver.Resolve(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", c.Name, err)
	}
	slog.Debug("Resolved published record", slog.String("name", c.Name), slog.Any("addresses", published))

	if !slices.Contains(published, addr) {
		return published, fmt.Errorf("%w: %s resolves to %v, stored address is %s", entity.ErrRecordMismatch, c.Name, published, addr)
	}
	return published, nil
}
