// Package clock provides an injectable time source so that lock expiry
// can be exercised deterministically in tests.
package clock

import "time"

// Clock supplies the current time.  Production code uses NewSystem;
// tests inject NewFixed to pin "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now in UTC.
func NewSystem() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a clock that always returns the same instant.  The instant can
// be advanced between assertions via Advance.
type Fixed struct {
	now time.Time
}

// NewFixed returns a clock pinned to t (normalised to UTC).
func NewFixed(t time.Time) *Fixed { return &Fixed{now: t.UTC()} }

func (f *Fixed) Now() time.Time { return f.now }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.now = f.now.Add(d) }
