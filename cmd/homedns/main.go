package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kofuk/homedns/internal/cli"
	potel "github.com/kofuk/homedns/internal/otel"
)

func createContext() context.Context {
	traceContext := os.Getenv("TRACEPARENT")
	return potel.ContextFromTraceContext(context.Background(), traceContext)
}

func run() int {
	logLevel := new(slog.LevelVar)
	if os.Getenv("HOMEDNS_VERBOSE") != "" {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})))

	tp, err := potel.InitializeTracer(context.Background())
	if err != nil {
		slog.Error("Failed to initialize tracer", slog.Any("error", err))
		return 1
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tp.Shutdown(ctx)
		}()
	}

	ctx, cancel := signal.NotifyContext(createContext(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	return cli.Run(ctx, os.Args[1:], logLevel)
}

func main() {
	os.Exit(run())
}
