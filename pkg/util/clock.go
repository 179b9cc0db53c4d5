package util

import "time"

// Clock supplies timestamps for listing creation and trade events.
// Swappable so tests can pin time.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FrozenClock always reports the same instant.
type FrozenClock struct{ T time.Time }

func (c FrozenClock) Now() time.Time { return c.T }
