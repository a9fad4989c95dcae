package flow

import (
	"context"
	"time"
)

// startTicker advances the motivational index until the returned stop func is
// called. stop waits for the goroutine to exit, so no callback runs after it.
// Must be called with c.mu held.
func (c *Controller) startTicker() (stop func()) {
	ctx, cancel := context.WithCancel(c.base)
	done := make(chan struct{})
	interval := c.interval

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}

			c.mu.Lock()
			if c.step != StepAnalyzing {
				c.mu.Unlock()
				return
			}
			c.msgIndex = (c.msgIndex + 1) % len(c.messages)
			idx, msg := c.msgIndex, c.messages[c.msgIndex]
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(idx, msg)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
