// Package countdown derives human-facing remaining-duration labels from
// absolute instants and a ticking wall-clock reference.
package countdown

import (
	"fmt"
	"strings"
	"time"
)

// State classifies a countdown. Unavailable (no usable instant) and Elapsed
// (the instant has passed) are deliberately distinct from a zero duration.
type State int

const (
	// StateUnavailable means the instant is missing or unparsable.
	StateUnavailable State = iota
	// StateElapsed means the instant already passed.
	StateElapsed
	// StatePending means the instant is still ahead.
	StatePending
)

func (s State) String() string {
	switch s {
	case StateUnavailable:
		return "unavailable"
	case StateElapsed:
		return "elapsed"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Countdown is the derived remaining-duration state for one instant.
type Countdown struct {
	State     State
	Remaining time.Duration
	Label     string
}

// Until computes the countdown from now to the given RFC 3339 instant.
func Until(instant string, now time.Time) Countdown {
	instant = strings.TrimSpace(instant)
	if instant == "" {
		return Countdown{State: StateUnavailable}
	}
	target, err := time.Parse(time.RFC3339, instant)
	if err != nil {
		return Countdown{State: StateUnavailable}
	}
	remaining := target.Sub(now)
	if remaining <= 0 {
		return Countdown{State: StateElapsed}
	}
	remaining = remaining.Truncate(time.Second)
	return Countdown{
		State:     StatePending,
		Remaining: remaining,
		Label:     formatRemaining(remaining),
	}
}

// formatRemaining renders a whole-second duration as "Dd HHh MMm SSs" with
// zero-padded hours/minutes/seconds and an unpadded day count.
func formatRemaining(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}
