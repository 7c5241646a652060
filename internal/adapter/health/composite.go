package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
)

const DefaultCompositePeriod = 30 * time.Second

// Mode decides how a composite folds its children's results
type Mode int

const (
	ModeAll Mode = iota
	ModeAny
	ModeMajority
)

func (m Mode) String() string {
	switch m {
	case ModeAny:
		return "any"
	case ModeMajority:
		return "majority"
	default:
		return "all"
	}
}

// ParseMode accepts all, any or majority (case-insensitive), empty means all
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "any":
		return ModeAny, nil
	case "majority":
		return ModeMajority, nil
	default:
		return ModeAll, fmt.Errorf("unknown composite mode %q", s)
	}
}

// NewCompositeCheck combines children under mode. ALL stops at the first
// failing child and ANY at the first passing one, MAJORITY runs every child
// and needs strictly more than half to pass. MAJORITY over no children fails.
// Checked every 30s by default.
func NewCompositeCheck(mode Mode, children ...domain.HealthCheck) *Check {
	kids := make([]domain.HealthCheck, len(children))
	copy(kids, children)

	probe := func(ctx context.Context) (bool, error) {
		switch mode {
		case ModeAny:
			for _, child := range kids {
				if child.Execute(ctx) {
					return true, nil
				}
			}
			return false, nil
		case ModeMajority:
			if len(kids) == 0 {
				return false, nil
			}
			passed := 0
			for _, child := range kids {
				if child.Execute(ctx) {
					passed++
				}
			}
			return passed > len(kids)/2, nil
		default:
			for _, child := range kids {
				if !child.Execute(ctx) {
					return false, nil
				}
			}
			return true, nil
		}
	}

	c := NewCheck("composite("+mode.String()+")", probe).WithSchedulePeriod(DefaultCompositePeriod)
	c.children = kids
	return c
}
