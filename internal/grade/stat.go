package grade

import (
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/nojgrade/internal/model"
)

// ProblemStat tracks one student's best score on one problem before each
// checkpoint of a schedule.
type ProblemStat struct {
	problemID int
	schedule  *Schedule
	scores    []int
}

// NewProblemStat returns a stat with every checkpoint score at zero.
func NewProblemStat(problemID int, schedule *Schedule) *ProblemStat {
	return &ProblemStat{
		problemID: problemID,
		schedule:  schedule,
		scores:    make([]int, schedule.Len()),
	}
}

// ProblemID returns the problem this stat accumulates.
func (p *ProblemStat) ProblemID() int {
	return p.problemID
}

// Update raises the best score of every checkpoint whose deadline is still
// ahead of the submission.
func (p *ProblemStat) Update(sub model.Submission) error {
	if sub.ProblemID != p.problemID {
		return fmt.Errorf("%w: stat %d, submission %d", ErrProblemMismatch, p.problemID, sub.ProblemID)
	}
	for i := range p.scores {
		if sub.SubmittedAt.Before(p.schedule.At(i).Deadline) {
			p.scores[i] = max(p.scores[i], sub.Score)
		}
	}
	return nil
}

// Scores returns a copy of the per-checkpoint best scores.
func (p *ProblemStat) Scores() []int {
	out := make([]int, len(p.scores))
	copy(out, p.scores)
	return out
}

// FinalScore credits each checkpoint's score increment over the previous
// checkpoint at that checkpoint's ratio. Increments are not clamped.
func (p *ProblemStat) FinalScore() float64 {
	var final float64
	prev := 0
	for i, s := range p.scores {
		delta := s - prev
		final += float64(delta) * float64(p.schedule.At(i).Ratio) / 100
		prev = s
	}
	return final
}

func (p *ProblemStat) String() string {
	parts := make([]string, len(p.scores))
	for i, s := range p.scores {
		cp := p.schedule.At(i)
		parts[i] = fmt.Sprintf("(%s, %d, %d)", cp.Deadline.Format(time.RFC3339), cp.Ratio, s)
	}
	return fmt.Sprintf("ProblemStat(%d, [%s])", p.problemID, strings.Join(parts, ", "))
}
