package grade

import "errors"

// Precondition faults. All of them abort report generation.
var (
	ErrEmptyPool         = errors.New("empty submission pool")
	ErrWeightSum         = errors.New("weights must sum to 100")
	ErrWeightSet         = errors.New("weighted problems differ from submitted problems")
	ErrMalformedWeight   = errors.New("malformed weight")
	ErrMalformedDeadline = errors.New("malformed deadline")
)

// ErrProblemMismatch means a submission was routed to the stat of another
// problem. It indicates a partitioning bug in the caller.
var ErrProblemMismatch = errors.New("submission problem does not match stat")
