// Package common holds small helpers shared by the CLI, batch runner, PDF
// processor and server.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one named lap of a Timer.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Timer measures a unit of work and, optionally, its phases.
type Timer struct {
	name     string
	start    time.Time
	lastLap  time.Time
	duration time.Duration
	phases   []Phase
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return NewNamedTimer("")
}

// NewNamedTimer starts a timer labelled name.
func NewNamedTimer(name string) *Timer {
	now := time.Now()
	return &Timer{name: name, start: now, lastLap: now}
}

// Lap closes the current phase under name and returns its duration.
func (t *Timer) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(t.lastLap)
	t.lastLap = now
	t.phases = append(t.phases, Phase{Name: name, Duration: d})
	return d
}

// Phases returns the recorded laps in order.
func (t *Timer) Phases() []Phase {
	out := make([]Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

// Elapsed returns the time since the timer started without stopping it.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop records and returns the total elapsed time.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the total recorded by Stop.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer label.
func (t *Timer) Name() string {
	return t.name
}

// String renders "name: total (phase=d, ...)".
func (t *Timer) String() string {
	var b strings.Builder
	if t.name != "" {
		b.WriteString(t.name)
		b.WriteString(": ")
	}
	b.WriteString(t.duration.String())
	if len(t.phases) > 0 {
		parts := make([]string, len(t.phases))
		for i, p := range t.phases {
			parts[i] = fmt.Sprintf("%s=%v", p.Name, p.Duration)
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// Milliseconds returns d in fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
