package health

import (
	"context"
	"time"
)

const (
	DefaultPingPeriod    = 10 * time.Second
	DefaultCommandPeriod = 30 * time.Second

	PingCheckName = "ping"
)

// NewPingCheck wraps a plain success predicate, checked every 10s by default
func NewPingCheck(ping func(ctx context.Context) bool) *Check {
	probe := func(ctx context.Context) (bool, error) {
		return ping(ctx), nil
	}
	return NewCheck(PingCheckName, probe).WithSchedulePeriod(DefaultPingPeriod)
}

// NewCommandCheck wraps a predicate that can fail with an error. The label
// only shows up in logs and events. Checked every 30s by default.
func NewCommandCheck(label string, command func(ctx context.Context) (bool, error)) *Check {
	return NewCheck(label, ProbeFunc(command)).WithSchedulePeriod(DefaultCommandPeriod)
}
