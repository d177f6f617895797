package probe

import (
	"context"
	"time"
)

// MinInterval is the floor enforced between consecutive probes during Wait.
const MinInterval = 200 * time.Millisecond

// Wait blocks until target becomes reachable, the total budget elapses, or
// ctx is canceled.
//
// A zero total means launch gating is disabled: Wait returns true immediately
// and never probes. Otherwise Wait probes at most once per interval (floored
// at MinInterval) and performs one final probe at/after the deadline before
// giving up. Cancellation returns false within one interval granule.
func (p *Prober) Wait(ctx context.Context, target string, total, interval time.Duration) bool {
	if total <= 0 {
		return true
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	deadline := time.Now().Add(total)
	for {
		if ctx.Err() != nil {
			return false
		}
		if p.Probe(target) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		sleep := interval
		if rem := time.Until(deadline); rem < sleep {
			sleep = rem
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(sleep):
		}
	}
}
