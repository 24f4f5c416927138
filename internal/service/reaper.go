package service

import (
	"context"
	"log"
	"time"
)

// Reaper periodically reclaims expired seat locks so that abandoned holds
// become available again without any caller action.  It is started once
// at boot and stops when its context is cancelled.  A failed sweep is
// logged and retried on the next tick; it is never fatal.
type Reaper struct {
	svc      *ReservationService
	interval time.Duration
}

const defaultSweepInterval = 10 * time.Second

// NewReaper builds a reaper that sweeps at the given interval.  A
// non-positive interval selects the default.
func NewReaper(svc *ReservationService, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Reaper{svc: svc, interval: interval}
}

// Run blocks, sweeping once per interval until ctx is cancelled.  It is
// meant to be launched in its own goroutine from main.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := r.svc.Sweep(ctx, r.svc.Now())
			if err != nil {
				log.Printf("reaper: sweep failed: %v", err)
				continue
			}
			if released > 0 {
				log.Printf("reaper: released %d expired seat lock(s)", released)
			}
		}
	}
}
