package console

import (
	"context"
	"time"

	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/logger"
)

// RunOptions controls the frame loop.
type RunOptions struct {
	FrameRate int
	// MaxFrames stops the loop after that many frames, 0 runs until the
	// context ends or the game is over.
	MaxFrames int
	// Hooks are the event handler lines; a halted program keeps running
	// while any of them exists.
	Hooks []uint16
}

// Run drives bridge at FrameRate until ctx is done, MaxFrames is reached,
// the program fails, or it halts without any event handler left to call.
func Run(ctx context.Context, bridge *basic.Bridge, c *Console, opts RunOptions) error {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	hasHooks := false
	prog := bridge.Executor().Program()
	for _, line := range opts.Hooks {
		if prog.HasLine(line) {
			hasHooks = true
			break
		}
	}

	ticker := time.NewTicker(time.Second / time.Duration(opts.FrameRate))
	defer ticker.Stop()
	last := time.Now()

	for frame := 1; ; frame++ {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			running, err := bridge.Update(dt)
			if err == nil {
				err = bridge.Draw()
			}
			if c != nil {
				c.Flush()
			}
			if err != nil {
				return err
			}
			if !running && !hasHooks {
				logger.Debug(logger.AreaConsole, "program ended after %d frames", frame)
				return nil
			}
			if opts.MaxFrames > 0 && frame >= opts.MaxFrames {
				return nil
			}
		}
	}
}
