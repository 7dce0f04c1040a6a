package noj

import (
	"slices"
	"strings"
	"testing"
	"time"
)

const submissionsEnvelope = `{
  "data": {
    "submissions": [
      {
        "submissionId": "65a0c3f1",
        "user": {"username": "alice", "displayedName": "Alice", "md5": "x", "role": 2},
        "timestamp": 1704412800.5,
        "lastSend": 1704412801,
        "problemId": 487,
        "score": 80,
        "status": 1,
        "languageType": 1,
        "runTime": 12,
        "memoryUsage": 1024
      }
    ]
  }
}`

func TestDecodeSubmissionsEnvelope(t *testing.T) {
	recs, err := DecodeSubmissions([]byte(submissionsEnvelope))
	if err != nil {
		t.Fatalf("DecodeSubmissions: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.ID != "65a0c3f1" || r.Username != "alice" || r.ProblemID != 487 || r.Score != 80 {
		t.Errorf("unexpected record %+v", r)
	}
	want := time.Date(2024, 1, 5, 0, 0, 0, 500_000_000, time.UTC)
	if !r.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, want)
	}

	s := r.Submission()
	if s.StudentID != "alice" || s.ProblemID != 487 || s.Score != 80 || !s.SubmittedAt.Equal(want) {
		t.Errorf("unexpected submission %+v", s)
	}
}

func TestDecodeSubmissionsArray(t *testing.T) {
	data := `[
	  {"submissionId": "a", "user": {"username": "bob"}, "timestamp": 1700000000, "problemId": 1, "score": 100},
	  {"submissionId": "b", "user": {"username": "bob"}, "timestamp": 1700000100, "problemId": 2, "score": 0}
	]`
	recs, err := DecodeSubmissions([]byte(data))
	if err != nil {
		t.Fatalf("DecodeSubmissions: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestDecodeSubmissionsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"score too high", `[{"submissionId": "a", "user": {"username": "u"}, "timestamp": 1, "problemId": 1, "score": 101}]`, "Score"},
		{"negative score", `[{"submissionId": "a", "user": {"username": "u"}, "timestamp": 1, "problemId": 1, "score": -1}]`, "Score"},
		{"no username", `[{"submissionId": "a", "user": {}, "timestamp": 1, "problemId": 1, "score": 1}]`, "Username"},
		{"no id", `[{"user": {"username": "u"}, "timestamp": 1, "problemId": 1, "score": 1}]`, "SubmissionID"},
		{"no timestamp", `[{"submissionId": "a", "user": {"username": "u"}, "problemId": 1, "score": 1}]`, "Timestamp"},
		{"bad language", `[{"submissionId": "a", "user": {"username": "u"}, "timestamp": 1, "problemId": 1, "score": 1, "languageType": 9}]`, "LanguageType"},
		{"wrong type", `[{"submissionId": "a", "user": {"username": "u"}, "timestamp": 1, "problemId": "one", "score": 1}]`, "problemId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSubmissions([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err, tt.field)
			}
		})
	}
}

func TestDecodeHomeworks(t *testing.T) {
	data := `{"data": [{
	  "id": "hw1",
	  "name": "HW1",
	  "problemIds": [487, 488],
	  "start": 1704067200,
	  "end": 1704844800,
	  "studentStatus": {"carol": {}, "alice": {"487": {"score": 100}}, "bob": null}
	}]}`
	hws, err := DecodeHomeworks("CS101", []byte(data))
	if err != nil {
		t.Fatalf("DecodeHomeworks: %v", err)
	}
	if len(hws) != 1 {
		t.Fatalf("expected 1 homework, got %d", len(hws))
	}
	hw := hws[0]
	if hw.Key() != "CS101/HW1" {
		t.Errorf("Key() = %q", hw.Key())
	}
	if !slices.Equal(hw.ProblemIDs, []int{487, 488}) {
		t.Errorf("ProblemIDs = %v", hw.ProblemIDs)
	}
	if !slices.Equal(hw.Students, []string{"alice", "bob", "carol"}) {
		t.Errorf("Students = %v", hw.Students)
	}
	if !hw.End.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v", hw.End)
	}

	if _, err := DecodeHomeworks("", []byte(data)); err == nil {
		t.Error("expected error without course")
	}
	bad := `[{"id": "hw2", "name": "HW2", "problemIds": [], "start": 0, "end": 1}]`
	if _, err := DecodeHomeworks("CS101", []byte(bad)); err == nil {
		t.Error("expected error for homework without problems")
	}
	backwards := `[{"id": "hw3", "name": "HW3", "problemIds": [1], "start": 100, "end": 1}]`
	if _, err := DecodeHomeworks("CS101", []byte(backwards)); err == nil {
		t.Error("expected error for homework ending before it starts")
	}
}

func TestDecodeProblems(t *testing.T) {
	ps, err := DecodeProblems([]byte(`{"data": [{"problemId": 487, "problemName": "A+B", "status": 0}]}`))
	if err != nil {
		t.Fatalf("DecodeProblems: %v", err)
	}
	if len(ps) != 1 || ps[0].ID != 487 || ps[0].Name != "A+B" {
		t.Errorf("unexpected problems %+v", ps)
	}
	if _, err := DecodeProblems([]byte(`[{"problemId": 1}]`)); err == nil {
		t.Error("expected error for problem without name")
	}
}
