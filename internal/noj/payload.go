// Package noj decodes judge API payloads into model records, validating
// every field at the boundary.
package noj

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/nojgrade/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// UserPayload is the user object embedded in submissions.
type UserPayload struct {
	Username      string `json:"username" validate:"required"`
	DisplayedName string `json:"displayedName"`
	MD5           string `json:"md5"`
	Role          int    `json:"role"`
}

// SubmissionPayload is one entry of the judge's submission listing.
type SubmissionPayload struct {
	SubmissionID string      `json:"submissionId" validate:"required"`
	User         UserPayload `json:"user"`
	Timestamp    float64     `json:"timestamp" validate:"gt=0"`
	LastSend     float64     `json:"lastSend" validate:"gte=0"`
	ProblemID    int         `json:"problemId" validate:"gte=0"`
	Score        int         `json:"score" validate:"min=0,max=100"`
	Status       int         `json:"status"`
	LanguageType int         `json:"languageType" validate:"min=0,max=3"`
	RunTime      int         `json:"runTime"`
	MemoryUsage  int         `json:"memoryUsage"`
}

// HomeworkPayload is one homework of a course.
type HomeworkPayload struct {
	ID            string                     `json:"id" validate:"required"`
	Name          string                     `json:"name" validate:"required"`
	ProblemIDs    []int                      `json:"problemIds" validate:"required,min=1,dive,gte=0"`
	Start         float64                    `json:"start"`
	End           float64                    `json:"end" validate:"gtefield=Start"`
	StudentStatus map[string]json.RawMessage `json:"studentStatus"`
}

// ProblemPayload is one entry of the judge's problem listing.
type ProblemPayload struct {
	ProblemID   int    `json:"problemId" validate:"gte=0"`
	ProblemName string `json:"problemName" validate:"required"`
	Status      int    `json:"status"`
}

// DecodeSubmissions reads a submission listing. Both a bare array and the
// judge's {"data": {"submissions": [...]}} envelope are accepted.
func DecodeSubmissions(data []byte) ([]model.SubmissionRecord, error) {
	var payloads []SubmissionPayload
	if isArray(data) {
		if err := json.Unmarshal(data, &payloads); err != nil {
			return nil, fmt.Errorf("decode submissions: %w", err)
		}
	} else {
		var env struct {
			Data struct {
				Submissions []SubmissionPayload `json:"submissions"`
			} `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode submissions: %w", err)
		}
		payloads = env.Data.Submissions
	}

	records := make([]model.SubmissionRecord, 0, len(payloads))
	for i, p := range payloads {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("submission %d (%s): %w", i, p.SubmissionID, err)
		}
		records = append(records, p.Record())
	}
	return records, nil
}

// Record converts a validated payload.
func (p SubmissionPayload) Record() model.SubmissionRecord {
	return model.SubmissionRecord{
		ID:           p.SubmissionID,
		Username:     p.User.Username,
		ProblemID:    p.ProblemID,
		Score:        p.Score,
		Status:       p.Status,
		LanguageType: model.LanguageType(p.LanguageType),
		RunTime:      p.RunTime,
		MemoryUsage:  p.MemoryUsage,
		CreatedAt:    unixTime(p.Timestamp),
		LastSend:     unixTime(p.LastSend),
	}
}

// DecodeHomeworks reads a course's homework listing, either a bare array or
// wrapped in {"data": [...]}.
func DecodeHomeworks(course string, data []byte) ([]model.Homework, error) {
	if course == "" {
		return nil, errors.New("decode homeworks: course is required")
	}
	var payloads []HomeworkPayload
	if isArray(data) {
		if err := json.Unmarshal(data, &payloads); err != nil {
			return nil, fmt.Errorf("decode homeworks: %w", err)
		}
	} else {
		var env struct {
			Data []HomeworkPayload `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode homeworks: %w", err)
		}
		payloads = env.Data
	}

	out := make([]model.Homework, 0, len(payloads))
	for i, p := range payloads {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("homework %d (%s): %w", i, p.Name, err)
		}
		out = append(out, p.Homework(course))
	}
	return out, nil
}

// Homework converts a validated payload.
func (p HomeworkPayload) Homework(course string) model.Homework {
	students := make([]string, 0, len(p.StudentStatus))
	for name := range p.StudentStatus {
		students = append(students, name)
	}
	slices.Sort(students)
	return model.Homework{
		ID:         p.ID,
		Course:     course,
		Name:       p.Name,
		ProblemIDs: p.ProblemIDs,
		Students:   students,
		Start:      unixTime(p.Start),
		End:        unixTime(p.End),
	}
}

// DecodeProblems reads the problem listing, wrapped in {"data": [...]} or bare.
func DecodeProblems(data []byte) ([]model.Problem, error) {
	var payloads []ProblemPayload
	if isArray(data) {
		if err := json.Unmarshal(data, &payloads); err != nil {
			return nil, fmt.Errorf("decode problems: %w", err)
		}
	} else {
		var env struct {
			Data []ProblemPayload `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode problems: %w", err)
		}
		payloads = env.Data
	}
	out := make([]model.Problem, 0, len(payloads))
	for i, p := range payloads {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("problem %d: %w", i, err)
		}
		out = append(out, model.Problem{ID: p.ProblemID, Name: p.ProblemName, Status: p.Status})
	}
	return out, nil
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// unixTime converts the judge's float seconds since the epoch.
func unixTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
