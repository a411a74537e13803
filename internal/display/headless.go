package display

import (
	"context"
	"fmt"
	"time"

	"github.com/efejjota/wasmcanvas/internal/frame"
)

// HeadlessConfig controls the no-window runner.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64
}

// RunHeadless ticks q at cfg.Hz until ctx is done or cfg.Ticks frames
// ran. Timestamps are derived from the tick count, so deltas are exact.
// step, if set, runs after every tick.
func RunHeadless(ctx context.Context, q *frame.Queue, cfg HeadlessConfig, step func(tick uint64) error) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			q.Tick(float64(tick) * 1000 / float64(cfg.Hz))
			if step != nil {
				if err := step(tick); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
