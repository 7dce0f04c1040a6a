package store

import (
	"fmt"

	"github.com/pavelanni/nojgrade/internal/model"
)

// SubmissionPool gathers the grading pool: the submissions of each problem,
// concatenated in the order the problems are given.
func (s *Store) SubmissionPool(problemIDs []int) ([]model.Submission, error) {
	var pool []model.Submission
	for _, pid := range problemIDs {
		recs, err := s.ListSubmissionsByProblem(pid)
		if err != nil {
			return nil, fmt.Errorf("list submissions of problem %d: %w", pid, err)
		}
		for _, r := range recs {
			pool = append(pool, r.Submission())
		}
	}
	return pool, nil
}
