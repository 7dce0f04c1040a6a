package model

import "time"

// LanguageType is the judge's source language code.
type LanguageType int

const (
	LanguageC    LanguageType = 0
	LanguageCPP  LanguageType = 1
	LanguagePy3  LanguageType = 2
	LanguageHand LanguageType = 3
)

// Submission is the minimal record the grading core consumes.
type Submission struct {
	StudentID   string
	ProblemID   int
	SubmittedAt time.Time
	Score       int
}

// SubmissionRecord is a stored judge submission with the fields the
// submission listing can expose.
type SubmissionRecord struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	ProblemID    int          `json:"problem_id"`
	Score        int          `json:"score"`
	Status       int          `json:"status"`
	LanguageType LanguageType `json:"language_type"`
	RunTime      int          `json:"run_time"`
	MemoryUsage  int          `json:"memory_usage"`
	CreatedAt    time.Time    `json:"created_at"`
	LastSend     time.Time    `json:"last_send"`
}

// Submission narrows a stored record to what the grading core needs.
func (r SubmissionRecord) Submission() Submission {
	return Submission{
		StudentID:   r.Username,
		ProblemID:   r.ProblemID,
		SubmittedAt: r.CreatedAt,
		Score:       r.Score,
	}
}

// Problem is a judge problem.
type Problem struct {
	ID     int
	Name   string
	Status int
}

// Homework is a course assignment: the problems it covers, who takes it,
// and when it closes.
type Homework struct {
	ID         string
	Course     string
	Name       string
	ProblemIDs []int
	Students   []string
	Start      time.Time
	End        time.Time
}

// Key returns the "<course>/<name>" identifier used on the command line.
func (h Homework) Key() string {
	return h.Course + "/" + h.Name
}

// GradeConfig holds the grading parameters set via CLI flags, config file,
// environment, or HTTP query.
type GradeConfig struct {
	ProblemIDs []int
	Homework   string   // "<course>/<name>"; overrides ProblemIDs when set
	Deadlines  []string // "<date>,<ratio>"
	Weights    []string // "<pid>=<ratio>"
	Exclude    string   // comma list or "@path"
	Location   *time.Location
	Workers    int
}
