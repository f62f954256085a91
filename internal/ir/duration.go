package ir

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Duration is a logical simulated offset with microsecond resolution.
// It is never derived from the wall clock.
type Duration int64

// Duration units.
const (
	Zero        Duration = 0
	Microsecond Duration = 1
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute

	// MaxDuration is used as an open upper bound (e.g. "no time ceiling").
	MaxDuration Duration = math.MaxInt64
)

// Seconds returns the duration as a floating point number of seconds.
// Real-valued dynamics use seconds as their rate unit.
func (d Duration) Seconds() float64 {
	return float64(d) / float64(Second)
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d) * time.Microsecond
}

// FromStd converts a time.Duration, truncating below one microsecond.
func FromStd(d time.Duration) Duration {
	return Duration(d / time.Microsecond)
}

// FromSeconds converts seconds to a Duration, rounding up to the next
// microsecond so that "at or after" semantics are preserved.
func FromSeconds(s float64) Duration {
	return Duration(math.Ceil(s * float64(Second)))
}

// AddTo offsets an absolute instant by d.
func (d Duration) AddTo(t time.Time) time.Time {
	return t.Add(d.Std())
}

// String renders the duration in Go notation ("1.5s", "2h0m0s").
func (d Duration) String() string {
	if d == MaxDuration {
		return "max"
	}
	return d.Std().String()
}

// ParseDuration parses Go duration notation ("90s", "1h30m", "250ms").
// A bare "0" is accepted.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return FromStd(d), nil
}

// MarshalText renders the duration as Go notation for YAML/JSON configs.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses Go duration notation.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
