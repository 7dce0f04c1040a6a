package store

import (
	"slices"
	"testing"
	"time"

	"github.com/pavelanni/nojgrade/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func at(day int) time.Time {
	return time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC)
}

func insertTestSubmissions(t *testing.T, s *Store, recs ...model.SubmissionRecord) {
	t.Helper()
	if err := s.UpsertSubmissions(recs); err != nil {
		t.Fatalf("insertTestSubmissions: %v", err)
	}
}

func rec(id, user string, pid, score int, created time.Time) model.SubmissionRecord {
	return model.SubmissionRecord{
		ID: id, Username: user, ProblemID: pid, Score: score,
		CreatedAt: created, LastSend: created,
	}
}

func TestSubmissionCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.SubmissionCount()
	if err != nil {
		t.Fatalf("SubmissionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 submissions, got %d", count)
	}

	insertTestSubmissions(t, s,
		rec("s1", "alice", 487, 60, at(3)),
		rec("s2", "bob", 487, 100, at(1)),
		rec("s3", "alice", 488, 20, at(2)),
	)

	list, err := s.ListSubmissionsByProblem(487)
	if err != nil {
		t.Fatalf("ListSubmissionsByProblem: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(list))
	}
	// Oldest first.
	if list[0].ID != "s2" || list[1].ID != "s1" {
		t.Errorf("unexpected order: %s, %s", list[0].ID, list[1].ID)
	}
	if !list[1].CreatedAt.Equal(at(3)) {
		t.Errorf("expected created_at %v, got %v", at(3), list[1].CreatedAt)
	}

	// Upsert replaces by ID.
	insertTestSubmissions(t, s, rec("s1", "alice", 487, 90, at(3)))
	count, _ = s.SubmissionCount()
	if count != 3 {
		t.Errorf("expected 3 submissions after upsert, got %d", count)
	}
	list, _ = s.ListSubmissionsByProblem(487)
	if list[1].Score != 90 {
		t.Errorf("expected updated score 90, got %d", list[1].Score)
	}
}

func TestListSubmissionsFiltered(t *testing.T) {
	s := newTestStore(t)
	insertTestSubmissions(t, s,
		rec("a", "alice", 1, 10, at(1)),
		rec("b", "alice", 2, 20, at(2)),
		rec("c", "bob", 1, 30, at(3)),
		rec("d", "bob", 3, 40, at(4)),
	)

	tests := []struct {
		name    string
		filter  SubmissionFilter
		wantIDs []string
	}{
		{"no filter", SubmissionFilter{}, []string{"a", "b", "c", "d"}},
		{"by problems", SubmissionFilter{ProblemIDs: []int{1, 3}}, []string{"a", "c", "d"}},
		{"by user", SubmissionFilter{Username: "bob"}, []string{"c", "d"}},
		{"before", SubmissionFilter{Before: at(3)}, []string{"a", "b"}},
		{"after", SubmissionFilter{After: at(2)}, []string{"c", "d"}},
		{"combined", SubmissionFilter{ProblemIDs: []int{1}, Before: at(2)}, []string{"a"}},
		{"no match", SubmissionFilter{Username: "carol"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ListSubmissions(tt.filter)
			if err != nil {
				t.Fatalf("ListSubmissions: %v", err)
			}
			var ids []string
			for _, r := range recs {
				ids = append(ids, r.ID)
			}
			if !slices.Equal(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestSubmissionPool(t *testing.T) {
	s := newTestStore(t)
	insertTestSubmissions(t, s,
		rec("a", "alice", 1, 10, at(2)),
		rec("b", "bob", 2, 20, at(1)),
		rec("c", "carol", 3, 30, at(1)),
	)

	pool, err := s.SubmissionPool([]int{2, 1})
	if err != nil {
		t.Fatalf("SubmissionPool: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(pool))
	}
	// Concatenated in problem order.
	if pool[0].ProblemID != 2 || pool[1].ProblemID != 1 {
		t.Errorf("unexpected pool order %+v", pool)
	}
	if pool[1].StudentID != "alice" || pool[1].Score != 10 || !pool[1].SubmittedAt.Equal(at(2)) {
		t.Errorf("unexpected submission %+v", pool[1])
	}

	empty, err := s.SubmissionPool([]int{99})
	if err != nil {
		t.Fatalf("SubmissionPool: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty pool, got %d", len(empty))
	}
}

func TestHomeworkCRUD(t *testing.T) {
	s := newTestStore(t)

	hw, err := s.GetHomework("CS101", "HW1")
	if err != nil {
		t.Fatalf("GetHomework: %v", err)
	}
	if hw != nil {
		t.Fatal("expected nil homework")
	}

	in := model.Homework{
		ID: "hw1", Course: "CS101", Name: "HW1",
		ProblemIDs: []int{488, 487},
		Students:   []string{"bob", "alice"},
		Start:      at(1), End: at(10),
	}
	if err := s.UpsertHomework(in); err != nil {
		t.Fatalf("UpsertHomework: %v", err)
	}

	hw, err = s.GetHomework("CS101", "HW1")
	if err != nil {
		t.Fatalf("GetHomework: %v", err)
	}
	if hw == nil {
		t.Fatal("expected homework")
	}
	if !slices.Equal(hw.ProblemIDs, []int{488, 487}) {
		t.Errorf("problem ids = %v, want [488 487]", hw.ProblemIDs)
	}
	if !slices.Equal(hw.Students, []string{"alice", "bob"}) {
		t.Errorf("students = %v", hw.Students)
	}
	if !hw.End.Equal(at(10)) {
		t.Errorf("end = %v, want %v", hw.End, at(10))
	}

	// Re-import replaces problems and roster.
	in.ProblemIDs = []int{1}
	in.Students = []string{"carol"}
	if err := s.UpsertHomework(in); err != nil {
		t.Fatalf("UpsertHomework update: %v", err)
	}
	hw, _ = s.GetHomework("CS101", "HW1")
	if !slices.Equal(hw.ProblemIDs, []int{1}) || !slices.Equal(hw.Students, []string{"carol"}) {
		t.Errorf("unexpected homework after update %+v", hw)
	}

	list, err := s.ListHomeworks("CS101")
	if err != nil {
		t.Fatalf("ListHomeworks: %v", err)
	}
	if len(list) != 1 || list[0].Name != "HW1" {
		t.Errorf("unexpected homework list %+v", list)
	}
}

func TestProblemNames(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertProblems([]model.Problem{{ID: 487, Name: "A+B"}, {ID: 488, Name: "Fib"}}); err != nil {
		t.Fatalf("UpsertProblems: %v", err)
	}
	names, err := s.ProblemNames([]int{487, 999})
	if err != nil {
		t.Fatalf("ProblemNames: %v", err)
	}
	if len(names) != 1 || names[487] != "A+B" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	// Missing file returns empty string.
	hash, err := s.GetImportedFileHash("/some/path.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}
	last, err := s.LastImport()
	if err != nil {
		t.Fatalf("LastImport: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero last import, got %v", last)
	}

	if err := s.SetImportedFileHash("/some/path.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.json")
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}
	last, err = s.LastImport()
	if err != nil {
		t.Fatalf("LastImport: %v", err)
	}
	if last.IsZero() {
		t.Error("expected last import to be set")
	}

	// Update existing.
	if err := s.SetImportedFileHash("/some/path.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}
