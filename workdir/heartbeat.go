package workdir

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Heartbeat bumps dir's modification time every interval until stop is
// called or ctx ends, so a long running download is never mistaken for a
// stale directory. A non-positive interval disables it.
func Heartbeat(ctx context.Context, dir string, every time.Duration, logger *slog.Logger) (stop func()) {
	if every <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := os.Chtimes(dir, now, now); err != nil {
					logger.Warn("heartbeat failed", "dir", dir, "err", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
