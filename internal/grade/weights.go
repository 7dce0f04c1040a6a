package grade

import (
	"fmt"
	"slices"
	"strings"
)

// Weight is a problem's share of the total, in percentage points.
type Weight struct {
	ProblemID int
	Percent   int
}

// Weights is an ordered weight table. Its order is the report's column order.
type Weights []Weight

// EvenWeights splits 100 across the problems by floor division and gives
// the remainder to the first problem.
func EvenWeights(problemIDs []int) Weights {
	if len(problemIDs) == 0 {
		return nil
	}
	each := 100 / len(problemIDs)
	w := make(Weights, len(problemIDs))
	for i, pid := range problemIDs {
		w[i] = Weight{ProblemID: pid, Percent: each}
	}
	w[0].Percent += 100 - each*len(problemIDs)
	return w
}

// Sum returns the total of all percentages.
func (w Weights) Sum() int {
	total := 0
	for _, x := range w {
		total += x.Percent
	}
	return total
}

// ProblemIDs returns the problem ids in table order.
func (w Weights) ProblemIDs() []int {
	ids := make([]int, len(w))
	for i, x := range w {
		ids[i] = x.ProblemID
	}
	return ids
}

// Get returns the weight of a problem.
func (w Weights) Get(problemID int) (int, bool) {
	i := slices.IndexFunc(w, func(x Weight) bool { return x.ProblemID == problemID })
	if i < 0 {
		return 0, false
	}
	return w[i].Percent, true
}

func (w Weights) String() string {
	parts := make([]string, len(w))
	for i, x := range w {
		parts[i] = fmt.Sprintf("%d=%d", x.ProblemID, x.Percent)
	}
	return strings.Join(parts, ",")
}
