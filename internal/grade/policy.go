package grade

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/nojgrade/internal/model"
)

// Option configures a Policy.
type Option func(*options)

type options struct {
	students    []string
	hasStudents bool
	weights     Weights
	checkpoints []Checkpoint
	excludes    []string
	workers     int
}

// WithStudents sets an explicit roster instead of deriving it from the pool.
func WithStudents(students []string) Option {
	return func(o *options) {
		o.students = students
		o.hasStudents = true
	}
}

// WithWeights sets the weight table. Without it weights are split evenly.
func WithWeights(w Weights) Option {
	return func(o *options) { o.weights = w }
}

// WithDeadlines sets the deadline checkpoints.
func WithDeadlines(cps []Checkpoint) Option {
	return func(o *options) { o.checkpoints = cps }
}

// WithExcludes removes students from the roster, whatever its source.
func WithExcludes(students []string) Option {
	return func(o *options) { o.excludes = students }
}

// WithWorkers shards students across n goroutines during Report.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Grid maps student to problem to that pair's stat.
type Grid map[string]map[int]*ProblemStat

// Row is one student's line of a report. Scores follow Report.Columns.
type Row struct {
	StudentID string
	Scores    []float64
	Total     float64
}

// Report is the result of a grading run.
type Report struct {
	Columns []int
	Rows    []Row
}

// Policy grades a submission pool under a multi-deadline schedule.
type Policy struct {
	submissions []model.Submission
	students    []string
	schedule    *Schedule
	weights     Weights
	workers     int
}

// NewPolicy derives the roster, schedule and weights for a run.
func NewPolicy(submissions []model.Submission, opts ...Option) (*Policy, error) {
	if len(submissions) == 0 {
		return nil, ErrEmptyPool
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	students := o.students
	if !o.hasStudents {
		students = distinctStudents(submissions)
	}
	students = subtract(students, o.excludes)

	weights := o.weights
	if weights == nil {
		weights = EvenWeights(distinctProblems(submissions))
	}

	return &Policy{
		submissions: submissions,
		students:    students,
		schedule:    NewSchedule(o.checkpoints),
		weights:     weights,
		workers:     max(o.workers, 1),
	}, nil
}

// Students returns the roster in report order.
func (p *Policy) Students() []string {
	return slices.Clone(p.students)
}

// Weights returns the weight table.
func (p *Policy) Weights() Weights {
	return slices.Clone(p.weights)
}

// Schedule returns the deadline schedule.
func (p *Policy) Schedule() *Schedule {
	return p.schedule
}

// Validate checks that the weights sum to 100 and cover exactly the
// problems present in the pool.
func (p *Policy) Validate() error {
	if sum := p.weights.Sum(); sum != 100 {
		return fmt.Errorf("%w: got %d (%s)", ErrWeightSum, sum, p.weights)
	}
	weighted := p.weights.ProblemIDs()
	slices.Sort(weighted)
	weighted = slices.Compact(weighted)
	if len(weighted) != len(p.weights) {
		return fmt.Errorf("%w: duplicate problem in %s", ErrWeightSet, p.weights)
	}
	pooled := distinctProblems(p.submissions)
	slices.Sort(pooled)
	if !slices.Equal(weighted, pooled) {
		return fmt.Errorf("%w: weighted %v, submitted %v", ErrWeightSet, weighted, pooled)
	}
	return nil
}

// Grid validates the policy and feeds every roster submission into a dense
// student × problem grid. Submissions of students outside the roster are
// dropped.
func (p *Policy) Grid(ctx context.Context) (Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	byStudent := make(map[string][]model.Submission, len(p.students))
	for _, s := range p.students {
		byStudent[s] = nil
	}
	for _, sub := range p.submissions {
		if _, ok := byStudent[sub.StudentID]; ok {
			byStudent[sub.StudentID] = append(byStudent[sub.StudentID], sub)
		}
	}

	shards := shard(p.students, p.workers)
	partial := make([]Grid, len(shards))
	g, ctx := errgroup.WithContext(ctx)
	for i, students := range shards {
		g.Go(func() error {
			grid := make(Grid, len(students))
			for _, student := range students {
				if err := ctx.Err(); err != nil {
					return err
				}
				stats := p.newStats()
				for _, sub := range byStudent[student] {
					if err := stats[sub.ProblemID].Update(sub); err != nil {
						return fmt.Errorf("student %s: %w", student, err)
					}
				}
				grid[student] = stats
			}
			partial[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grid := make(Grid, len(p.students))
	for _, part := range partial {
		for student, stats := range part {
			grid[student] = stats
		}
	}
	return grid, nil
}

// Report grades every roster student. Rows are ordered by student id.
func (p *Policy) Report(ctx context.Context) (*Report, error) {
	grid, err := p.Grid(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{Columns: p.weights.ProblemIDs(), Rows: make([]Row, 0, len(p.students))}
	for _, student := range p.students {
		stats := grid[student]
		slog.Debug("grading student", "student", student)
		row := Row{StudentID: student, Scores: make([]float64, len(p.weights))}
		for i, w := range p.weights {
			stat := stats[w.ProblemID]
			slog.Debug("problem stat", "student", student, "stat", stat.String())
			final := stat.FinalScore()
			row.Scores[i] = final
			row.Total += float64(w.Percent) * final / 100
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}

func (p *Policy) newStats() map[int]*ProblemStat {
	stats := make(map[int]*ProblemStat, len(p.weights))
	for _, w := range p.weights {
		stats[w.ProblemID] = NewProblemStat(w.ProblemID, p.schedule)
	}
	return stats
}

func distinctStudents(subs []model.Submission) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range subs {
		if !seen[s.StudentID] {
			seen[s.StudentID] = true
			out = append(out, s.StudentID)
		}
	}
	return out
}

// distinctProblems returns problem ids in order of first appearance.
func distinctProblems(subs []model.Submission) []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range subs {
		if !seen[s.ProblemID] {
			seen[s.ProblemID] = true
			out = append(out, s.ProblemID)
		}
	}
	return out
}

// subtract returns the sorted, de-duplicated roster minus the excludes.
func subtract(students, excludes []string) []string {
	drop := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		drop[e] = true
	}
	out := make([]string, 0, len(students))
	for _, s := range students {
		if !drop[s] {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func shard(students []string, n int) [][]string {
	n = min(n, len(students))
	if n <= 1 {
		return [][]string{students}
	}
	size := (len(students) + n - 1) / n
	var shards [][]string
	for start := 0; start < len(students); start += size {
		shards = append(shards, students[start:min(start+size, len(students))])
	}
	return shards
}
