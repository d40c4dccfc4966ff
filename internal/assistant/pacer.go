package assistant

import (
	"context"
	"time"
)

// Pacer adds the "typing" pause a chat UI shows before a reply. It carries no
// correctness weight and is applied by transports, not by the engine.
type Pacer struct {
	Delay time.Duration
}

// Wait blocks for the configured delay or until ctx is done.
func (p Pacer) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
