package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kofuk/homedns/internal/fs"
	potel "github.com/kofuk/homedns/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func lock(path string) (*fs.FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return fs.Lock(path)
}

// startCycle opens the span and logger shared by every step of one invocation.
func startCycle(ctx context.Context, name string) (context.Context, trace.Span, *slog.Logger, string) {
	id := uuid.NewString()
	ctx, span := potel.Tracer().Start(ctx, name)
	span.SetAttributes(attribute.String("homedns.cycle_id", id))
	return ctx, span, slog.Default().With(slog.String("cycle", id)), id
}

func endCycle(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
