package system

//go:generate go tool mockgen -destination cmd_mock.go -package system . CommandExecutor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	potel "github.com/kofuk/homedns/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ScopeName = "github.com/kofuk/homedns/internal/system"

var logNum uint64

type CommandExecutor interface {
	Run(ctx context.Context, path string, args []string, options ...CmdOption) error
}

// SimpleExecutor runs commands and keeps their combined output in a log file
// under LogDir. An empty LogDir discards the output.
type SimpleExecutor struct {
	LogDir string
}

func NewExecutor(logDir string) *SimpleExecutor {
	return &SimpleExecutor{LogDir: logDir}
}

func (e *SimpleExecutor) createLog() (io.Writer, string, error) {
	if e.LogDir == "" {
		return io.Discard, "<discarded>", nil
	}
	if err := os.MkdirAll(e.LogDir, 0755); err != nil {
		return io.Discard, "<error>", err
	}
	for {
		logPath := filepath.Join(e.LogDir, fmt.Sprintf("command-%d-%d.log", os.Getpid(), atomic.AddUint64(&logNum, 1)-1))
		log, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			slog.Error("Unable to create log file", slog.Any("error", err))
			return io.Discard, "<error>", err
		}
		return log, logPath, nil
	}
}

type CmdOption func(cmd *exec.Cmd)

func WithOutput(w io.Writer) CmdOption {
	return func(cmd *exec.Cmd) {
		cmd.Stdout = w
	}
}

func (e *SimpleExecutor) Run(ctx context.Context, path string, args []string, options ...CmdOption) error {
	tracer := trace.SpanFromContext(ctx).TracerProvider().Tracer(ScopeName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("EXEC %s", path))
	defer span.End()

	log, logPath, err := e.createLog()
	if err != nil {
		return err
	}
	if closer, ok := log.(io.Closer); ok {
		defer closer.Close()
	}

	slog.Info("Execute system command", slog.String("command", path), slog.Any("args", args), slog.String("command_output", logPath))

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = log
	cmd.Stderr = log
	cmd.Env = cmd.Environ()
	if traceparent := potel.TraceContextFromContext(ctx); traceparent != "" {
		cmd.Env = append(cmd.Env, "TRACEPARENT="+traceparent)
	}
	for _, opt := range options {
		opt(cmd)
	}

	span.SetAttributes(
		attribute.String("command.name", path),
		attribute.StringSlice("command.args", cmd.Args),
	)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%w)", err, ctx.Err())
		}
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Command failed", slog.String("command", path), slog.String("command_output", logPath), slog.Any("error", err))
		return err
	}
	return nil
}

func RunWithOutput(ctx context.Context, executor CommandExecutor, path string, args []string, options ...CmdOption) (string, error) {
	output := new(strings.Builder)
	err := executor.Run(ctx, path, args, append(options, WithOutput(output))...)
	return output.String(), err
}
