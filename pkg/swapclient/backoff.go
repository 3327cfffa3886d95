package swapclient

import "time"

const (
	defaultBackoffMin = time.Second
	defaultBackoffMax = 60 * time.Second
)

// Backoff yields exponentially growing delays between Min and Max.
// It is not safe for concurrent use.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	attempt int
}

// NewBackoff returns a Backoff from 1s doubling up to 60s.
func NewBackoff() *Backoff {
	return &Backoff{Min: defaultBackoffMin, Max: defaultBackoffMax}
}

// Next returns the delay before the next attempt and advances the sequence.
func (b *Backoff) Next() time.Duration {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = defaultBackoffMin
	}
	if hi < lo {
		hi = lo
	}
	d := lo
	for i := 0; i < b.attempt && d < hi; i++ {
		d *= 2
	}
	if d > hi {
		d = hi
	}
	b.attempt++
	return d
}

// Reset restarts the sequence at Min, e.g. after a success.
func (b *Backoff) Reset() {
	b.attempt = 0
}
