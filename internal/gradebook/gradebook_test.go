package gradebook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/pavelanni/nojgrade/internal/grade"
	"github.com/pavelanni/nojgrade/internal/model"
)

type fakeSource struct {
	subs      []model.Submission
	homeworks map[string]*model.Homework
	requested []int
}

func (f *fakeSource) SubmissionPool(pids []int) ([]model.Submission, error) {
	f.requested = pids
	var out []model.Submission
	for _, pid := range pids {
		for _, s := range f.subs {
			if s.ProblemID == pid {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeSource) GetHomework(course, name string) (*model.Homework, error) {
	return f.homeworks[course+"/"+name], nil
}

func at(day int) time.Time {
	return time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		subs: []model.Submission{
			{StudentID: "alice", ProblemID: 1, SubmittedAt: at(1), Score: 100},
			{StudentID: "alice", ProblemID: 2, SubmittedAt: at(5), Score: 60},
			{StudentID: "bob", ProblemID: 1, SubmittedAt: at(8), Score: 100},
			{StudentID: "eve", ProblemID: 1, SubmittedAt: at(1), Score: 100},
		},
		homeworks: map[string]*model.Homework{
			"CS101/HW1": {
				Course: "CS101", Name: "HW1",
				ProblemIDs: []int{1, 2},
				Students:   []string{"alice", "bob", "carol"},
				End:        at(6),
			},
		},
	}
}

func TestReportProblemMode(t *testing.T) {
	src := newFakeSource()
	rep, err := Report(context.Background(), src, model.GradeConfig{
		ProblemIDs: []int{1, 2},
		Deadlines:  []string{"2024-03-06,100"},
		Weights:    []string{"1=40", "2=60"},
		Exclude:    "eve",
		Location:   time.UTC,
	})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !slices.Equal(rep.Columns, []int{1, 2}) {
		t.Errorf("columns = %v, want [1 2]", rep.Columns)
	}
	want := map[string]float64{"alice": 40 + 36, "bob": 0}
	if len(rep.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rep.Rows))
	}
	for _, row := range rep.Rows {
		if row.Total != want[row.StudentID] {
			t.Errorf("%s total = %v, want %v", row.StudentID, row.Total, want[row.StudentID])
		}
	}
}

func TestReportHomeworkMode(t *testing.T) {
	src := newFakeSource()
	rep, err := Report(context.Background(), src, model.GradeConfig{
		ProblemIDs: []int{99},
		Homework:   "CS101/HW1",
	})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !slices.Equal(src.requested, []int{1, 2}) {
		t.Errorf("requested problems %v, want homework problems [1 2]", src.requested)
	}

	var students []string
	totals := make(map[string]float64)
	for _, row := range rep.Rows {
		students = append(students, row.StudentID)
		totals[row.StudentID] = row.Total
	}
	// Roster comes from the homework, eve is not on it.
	if !slices.Equal(students, []string{"alice", "bob", "carol"}) {
		t.Errorf("students = %v", students)
	}
	// Homework end is the default deadline: bob submitted after it.
	if totals["alice"] != 80 || totals["bob"] != 0 || totals["carol"] != 0 {
		t.Errorf("unexpected totals %v", totals)
	}
}

func TestNewPolicyErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  model.GradeConfig
		want error
	}{
		{"no problems", model.GradeConfig{}, ErrNoProblems},
		{"malformed homework", model.GradeConfig{Homework: "CS101"}, ErrMalformedHomework},
		{"unknown homework", model.GradeConfig{Homework: "CS101/HW9"}, ErrHomeworkNotFound},
		{"malformed weight", model.GradeConfig{ProblemIDs: []int{1}, Weights: []string{"1:100"}}, grade.ErrMalformedWeight},
		{"malformed deadline", model.GradeConfig{ProblemIDs: []int{1}, Deadlines: []string{"tomorrow,100"}}, grade.ErrMalformedDeadline},
		{"empty pool", model.GradeConfig{ProblemIDs: []int{42}}, grade.ErrEmptyPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(newFakeSource(), tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsUserError(err) {
				t.Errorf("IsUserError(%v) = false", err)
			}
		})
	}
}

func TestReportWeightMismatch(t *testing.T) {
	_, err := Report(context.Background(), newFakeSource(), model.GradeConfig{
		ProblemIDs: []int{1, 2},
		Weights:    []string{"1=100"},
	})
	if !errors.Is(err, grade.ErrWeightSet) {
		t.Fatalf("err = %v, want ErrWeightSet", err)
	}
}

func TestIsUserError(t *testing.T) {
	if IsUserError(errors.New("disk on fire")) {
		t.Error("plain error reported as user error")
	}
	if !IsUserError(fmt.Errorf("wrapped: %w", grade.ErrWeightSum)) {
		t.Error("wrapped ErrWeightSum not reported as user error")
	}
}
