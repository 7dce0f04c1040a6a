package grade

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Forever is the latest representable deadline. A schedule built from no
// checkpoints closes at Forever with full credit.
var Forever = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

// Checkpoint is a scoring milestone: score gained before Deadline is
// credited at Ratio percent.
type Checkpoint struct {
	Deadline time.Time
	Ratio    int
}

// Schedule is an immutable list of checkpoints sorted by deadline.
type Schedule struct {
	checkpoints []Checkpoint
}

// NewSchedule sorts the checkpoints by deadline, keeping input order for
// equal deadlines.
func NewSchedule(checkpoints []Checkpoint) *Schedule {
	if len(checkpoints) == 0 {
		return &Schedule{checkpoints: []Checkpoint{{Deadline: Forever, Ratio: 100}}}
	}
	cps := slices.Clone(checkpoints)
	slices.SortStableFunc(cps, func(a, b Checkpoint) int {
		return a.Deadline.Compare(b.Deadline)
	})
	return &Schedule{checkpoints: cps}
}

// Len returns the number of checkpoints.
func (s *Schedule) Len() int {
	return len(s.checkpoints)
}

// At returns the i-th checkpoint.
func (s *Schedule) At(i int) Checkpoint {
	return s.checkpoints[i]
}

// Checkpoints returns a copy of the sorted checkpoints.
func (s *Schedule) Checkpoints() []Checkpoint {
	return slices.Clone(s.checkpoints)
}

func (s *Schedule) String() string {
	parts := make([]string, len(s.checkpoints))
	for i, cp := range s.checkpoints {
		parts[i] = fmt.Sprintf("%s@%d%%", cp.Deadline.Format(time.RFC3339), cp.Ratio)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
