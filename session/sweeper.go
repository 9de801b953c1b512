package session

import (
	"context"
	"time"
)

// Sweep calls Expire every interval until ctx is done, passing the removed
// IDs to onExpire. It returns immediately when maxIdle or interval is not
// positive.
func (t *Table) Sweep(ctx context.Context, maxIdle, interval time.Duration, onExpire func(id string)) {
	if maxIdle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range t.Expire(maxIdle) {
				if onExpire != nil {
					onExpire(id)
				}
			}
		}
	}
}
