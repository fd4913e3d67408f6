// Package clock lets callers inject "now" instead of reading the wall clock.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reads time.Now in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
