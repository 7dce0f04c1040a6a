package gradebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/nojgrade/internal/grade"
	"github.com/pavelanni/nojgrade/internal/model"
)

var (
	ErrNoProblems        = errors.New("no problem ids given")
	ErrMalformedHomework = errors.New("homework must be <course>/<name>")
	ErrHomeworkNotFound  = errors.New("homework not found")
)

// Source supplies the submission pool and homework records.
type Source interface {
	SubmissionPool(problemIDs []int) ([]model.Submission, error)
	GetHomework(course, name string) (*model.Homework, error)
}

// NewPolicy resolves a grading configuration against a source. In homework
// mode the homework's problems and roster replace the configured ones and
// its end time becomes the default deadline.
func NewPolicy(src Source, cfg model.GradeConfig) (*grade.Policy, error) {
	weights, err := grade.ParseWeights(cfg.Weights)
	if err != nil {
		return nil, err
	}
	deadlines, err := grade.ParseDeadlines(cfg.Deadlines, cfg.Location)
	if err != nil {
		return nil, err
	}
	excludes, err := grade.ParseExcludes(cfg.Exclude)
	if err != nil {
		return nil, err
	}

	var opts []grade.Option
	pids := cfg.ProblemIDs
	if cfg.Homework != "" {
		course, name, ok := strings.Cut(cfg.Homework, "/")
		if !ok || course == "" || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHomework, cfg.Homework)
		}
		hw, err := src.GetHomework(course, name)
		if err != nil {
			return nil, fmt.Errorf("get homework: %w", err)
		}
		if hw == nil {
			return nil, fmt.Errorf("%w: %s", ErrHomeworkNotFound, cfg.Homework)
		}
		pids = hw.ProblemIDs
		opts = append(opts, grade.WithStudents(hw.Students))
		if len(deadlines) == 0 {
			deadlines = []grade.Checkpoint{{Deadline: hw.End, Ratio: 100}}
		}
	}
	if len(pids) == 0 {
		return nil, ErrNoProblems
	}

	pool, err := src.SubmissionPool(pids)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	if weights != nil {
		opts = append(opts, grade.WithWeights(weights))
	}
	opts = append(opts,
		grade.WithDeadlines(deadlines),
		grade.WithExcludes(excludes),
		grade.WithWorkers(cfg.Workers),
	)

	slog.Debug("grade parameters",
		"problems", pids,
		"homework", cfg.Homework,
		"deadlines", cfg.Deadlines,
		"weights", cfg.Weights,
		"excludes", len(excludes),
		"submissions", len(pool),
	)
	p, err := grade.NewPolicy(pool, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved policy", "schedule", p.Schedule().String(), "weights", p.Weights().String())
	return p, nil
}

// Report builds the policy for cfg and grades it.
func Report(ctx context.Context, src Source, cfg model.GradeConfig) (*grade.Report, error) {
	p, err := NewPolicy(src, cfg)
	if err != nil {
		return nil, err
	}
	return p.Report(ctx)
}

// IsUserError reports whether err was caused by the grading parameters
// rather than by the source or a bug.
func IsUserError(err error) bool {
	for _, target := range []error{
		grade.ErrEmptyPool,
		grade.ErrWeightSum,
		grade.ErrWeightSet,
		grade.ErrMalformedWeight,
		grade.ErrMalformedDeadline,
		ErrNoProblems,
		ErrMalformedHomework,
		ErrHomeworkNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
