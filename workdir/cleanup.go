package workdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robertkozin/wizardconvert/tr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("workdir")

// Sweep removes every directory directly under root whose modification time
// is before cutoff. Files at the top level are left alone. It keeps going
// past individual failures and returns them together.
func Sweep(root string, cutoff time.Time) (removed []string, err error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	var result *multierror.Error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				result = multierror.Append(result, multierror.Prefix(err, entry.Name()))
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result = multierror.Append(result, multierror.Prefix(err, entry.Name()))
			continue
		}
		removed = append(removed, entry.Name())
	}

	return removed, result.ErrorOrNil()
}

type Scheduler struct {
	Root     string
	MaxAge   time.Duration
	Interval time.Duration
	Logger   *slog.Logger

	now func() time.Time
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.Logger.Info("cleanup scheduler started", "root", s.Root, "max_age", s.MaxAge.String(), "interval", s.Interval.String())

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		_ = s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			s.Logger.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep. Errors are logged and returned but never
// stop the scheduler.
func (s *Scheduler) RunOnce(ctx context.Context) (err error) {
	_, span := tracer.Start(ctx, "cleanup")
	defer tr.End(span, &err)

	now := time.Now
	if s.now != nil {
		now = s.now
	}

	removed, err := Sweep(s.Root, now().Add(-s.MaxAge))
	span.SetAttributes(attribute.Int("removed", len(removed)))
	for _, name := range removed {
		s.Logger.Info("cleaned up old directory", "id", name)
	}
	if err != nil {
		s.Logger.Error("error during cleanup", "err", err)
	}
	return err
}
