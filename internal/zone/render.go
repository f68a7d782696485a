package zone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kofuk/homedns/internal/address"
	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/fs"
	potel "github.com/kofuk/homedns/internal/otel"
	"github.com/miekg/dns"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Renderer struct {
	TemplatePath string
	WorkPath     string
	ZonePath     string
	Placeholder  string
	// Strict turns a residual placeholder into an error instead of a warning.
	Strict     bool
	BumpSerial bool
	CheckZone  bool
	Origin     string
	// Force deploys even when the result matches the deployed zone.
	Force  bool
	Backup *Backup
	Now    func() time.Time
}

type Result struct {
	Changed      bool
	Replacements int
	Serial       uint32
	HasSerial    bool
	BackupPath   string
}

func NewRenderer(cfg *config.Config, backup *Backup) *Renderer {
	return &Renderer{
		TemplatePath: cfg.TemplatePath(),
		WorkPath:     cfg.WorkPath(),
		ZonePath:     cfg.ZonePath(),
		Placeholder:  cfg.Placeholder,
		Strict:       cfg.StrictSubstitution,
		BumpSerial:   cfg.BumpSerial,
		CheckZone:    cfg.CheckZone,
		Origin:       cfg.ZoneName,
		Backup:       backup,
		Now:          time.Now,
	}
}

// NewBackup returns nil when backups are disabled.
func NewBackup(cfg *config.Config, uploader Uploader) *Backup {
	if !cfg.BackupEnabled {
		return nil
	}
	return &Backup{
		Dir:         cfg.BackupDir,
		Keep:        cfg.BackupKeep,
		Compression: cfg.BackupCompression,
		Uploader:    uploader,
	}
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Renderer) renderErr(kind error, format string, args ...any) error {
	return fmt.Errorf("render %s: %w: %s", r.ZonePath, kind, fmt.Sprintf(format, args...))
}

// Substitute replaces every literal occurrence of the placeholder. Neither the
// placeholder nor the address is interpreted as a pattern.
func Substitute(template, placeholder, addr string) (string, int) {
	return strings.ReplaceAll(template, placeholder, addr), strings.Count(template, placeholder)
}

// Render produces the zone for addr from the template and deploys it. When the
// outcome equals the deployed zone nothing is written and Changed is false.
func (r *Renderer) Render(ctx context.Context, addr string) (result *Result, err error) {
	ctx, span := potel.Tracer().Start(ctx, "RENDER zone")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("zone.path", r.ZonePath))

	tmpl, err := os.ReadFile(r.TemplatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("render %s: %w: %s", r.ZonePath, entity.ErrTemplateNotFound, r.TemplatePath)
		}
		return nil, r.renderErr(entity.ErrRender, "read template: %v", err)
	}

	addr, err = address.Canonical(addr)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", r.ZonePath, err)
	}
	if r.Placeholder == "" {
		return nil, r.renderErr(entity.ErrSubstitutionIncomplete, "empty placeholder")
	}

	rendered, n := Substitute(string(tmpl), r.Placeholder, addr)
	result = &Result{Replacements: n}

	if residual := strings.Count(rendered, r.Placeholder); n == 0 || residual > 0 {
		var err error
		if n == 0 {
			err = r.renderErr(entity.ErrSubstitutionIncomplete, "placeholder %q not found in %s", r.Placeholder, r.TemplatePath)
		} else {
			err = r.renderErr(entity.ErrSubstitutionIncomplete, "%d occurrence(s) of %q remain after substitution", residual, r.Placeholder)
		}
		if r.Strict {
			return nil, err
		}
		slog.Warn("Substitution incomplete; deploying anyway", slog.Any("error", err))
	}

	deployed, hasDeployed, err := r.readDeployed()
	if err != nil {
		return nil, err
	}

	final, unchanged := r.applySerial(rendered, deployed, hasDeployed, result)
	if unchanged && !r.Force {
		slog.Info("Zone already up to date", slog.String("zone", r.ZonePath), slog.String("address", addr))
		return result, nil
	}

	if r.CheckZone {
		if err := r.check(final); err != nil {
			return nil, r.renderErr(entity.ErrRender, "zone does not parse: %v", err)
		}
	}

	if r.Backup != nil && hasDeployed {
		path, err := r.Backup.Snapshot(ctx, r.ZonePath, r.now())
		if err != nil {
			return nil, r.renderErr(entity.ErrRender, "back up deployed zone to %s: %v", r.Backup.Dir, err)
		}
		result.BackupPath = path
	}

	if err := fs.ReplaceVia(r.WorkPath, r.ZonePath, []byte(final), r.perm()); err != nil {
		return nil, r.renderErr(entity.ErrRender, "write via %s: %v", r.WorkPath, err)
	}
	result.Changed = true

	span.SetAttributes(attribute.Int64("zone.serial", int64(result.Serial)))
	slog.Info("Deployed zone", slog.String("zone", r.ZonePath), slog.String("address", addr), slog.Any("serial", result.Serial))

	return result, nil
}

func (r *Renderer) readDeployed() (string, bool, error) {
	data, err := os.ReadFile(r.ZonePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, r.renderErr(entity.ErrRender, "read deployed zone: %v", err)
	}
	return string(data), true, nil
}

// applySerial bumps the SOA serial of rendered and reports whether rendered is
// the same zone as deployed apart from the serial.
func (r *Renderer) applySerial(rendered, deployed string, hasDeployed bool, result *Result) (string, bool) {
	if !r.BumpSerial {
		return rendered, hasDeployed && rendered == deployed
	}

	span, tmplSerial, ok := FindSerial(rendered)
	if !ok {
		slog.Warn("No SOA serial found; deploying without a serial bump", slog.String("template", r.TemplatePath))
		return rendered, hasDeployed && rendered == deployed
	}

	start := tmplSerial
	if hasDeployed {
		if _, deployedSerial, ok := FindSerial(deployed); ok {
			if SetSerial(rendered, span, deployedSerial) == deployed && !r.Force {
				result.Serial, result.HasSerial = deployedSerial, true
				return deployed, true
			}
			if serialLess(start, deployedSerial) {
				start = deployedSerial
			}
		}
	}

	next := NextSerial(start, r.now())
	result.Serial, result.HasSerial = next, true
	return SetSerial(rendered, span, next), false
}

func (r *Renderer) check(content string) error {
	origin := r.Origin
	if origin == "" {
		origin = "."
	}
	zp := dns.NewZoneParser(strings.NewReader(content), dns.Fqdn(origin), r.ZonePath)
	zp.SetIncludeAllowed(true)
	for _, ok := zp.Next(); ok; _, ok = zp.Next() {
	}
	return zp.Err()
}

func (r *Renderer) perm() os.FileMode {
	if info, err := os.Stat(r.ZonePath); err == nil {
		return info.Mode().Perm()
	}
	if info, err := os.Stat(r.TemplatePath); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}

// Restore deploys the content of a snapshot as the zone, bumping its serial past
// the currently deployed one.
func (r *Renderer) Restore(ctx context.Context, snapshot string) (*Result, error) {
	data, err := ReadSnapshot(snapshot)
	if err != nil {
		return nil, r.renderErr(entity.ErrRender, "read snapshot %s: %v", snapshot, err)
	}
	deployed, hasDeployed, err := r.readDeployed()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	final := string(data)
	if r.BumpSerial {
		if span, serial, ok := FindSerial(final); ok {
			start := serial
			if hasDeployed {
				if _, deployedSerial, ok := FindSerial(deployed); ok && serialLess(start, deployedSerial) {
					start = deployedSerial
				}
			}
			result.Serial, result.HasSerial = NextSerial(start, r.now()), true
			final = SetSerial(final, span, result.Serial)
		}
	}

	if r.Backup != nil && hasDeployed {
		path, err := r.Backup.Snapshot(ctx, r.ZonePath, r.now())
		if err != nil {
			return nil, r.renderErr(entity.ErrRender, "back up deployed zone to %s: %v", r.Backup.Dir, err)
		}
		result.BackupPath = path
	}

	if err := fs.ReplaceVia(r.WorkPath, r.ZonePath, []byte(final), r.perm()); err != nil {
		return nil, r.renderErr(entity.ErrRender, "write via %s: %v", r.WorkPath, err)
	}
	result.Changed = true

	slog.Info("Restored zone from snapshot", slog.String("zone", r.ZonePath), slog.String("snapshot", filepath.Base(snapshot)))

	return result, nil
}
