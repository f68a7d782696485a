package fetcher

//go:generate go tool mockgen -destination fetcher_mock.go -package fetcher . AddressSource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kofuk/homedns/internal/address"
	"github.com/kofuk/homedns/internal/entity"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Endpoints answer with a bare address; anything longer is not what we asked for.
const maxBodySize = 1024

type AddressSource interface {
	Fetch(ctx context.Context) (string, error)
}

type Fetcher struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

var _ AddressSource = (*Fetcher)(nil)

func New(url string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		URL:     url,
		Timeout: timeout,
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Fetch issues a single GET against the endpoint and returns the validated
// address it reports.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w: %w", f.URL, entity.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w: %w", f.URL, entity.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: %w: unexpected status %s", f.URL, entity.ErrFetchFailed, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w: read body: %w", f.URL, entity.ErrFetchFailed, err)
	}
	if len(body) > maxBodySize {
		return "", fmt.Errorf("fetch %s: %w: response body exceeds %d bytes", f.URL, entity.ErrInvalidAddress, maxBodySize)
	}

	candidate, err := address.Canonical(address.Normalize(body))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", f.URL, err)
	}

	slog.Debug("Fetched public address", slog.String("url", f.URL), slog.String("address", candidate))

	return candidate, nil
}
