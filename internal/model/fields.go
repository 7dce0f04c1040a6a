package model

import (
	"encoding/json"
	"fmt"
)

// SubmissionFields lists the field names a submission listing can select.
var SubmissionFields = []string{
	"id", "username", "problem_id", "score", "status",
	"language_type", "run_time", "memory_usage", "created_at", "last_send",
}

// ProjectSubmissions keeps only the named JSON fields of each record. No
// fields means all of them.
func ProjectSubmissions(recs []SubmissionRecord, fields []string) ([]map[string]any, error) {
	if len(fields) == 0 {
		fields = SubmissionFields
	}
	known := make(map[string]bool, len(SubmissionFields))
	for _, f := range SubmissionFields {
		known[f] = true
	}
	for _, f := range fields {
		if !known[f] {
			return nil, fmt.Errorf("unknown submission field %q", f)
		}
	}

	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		var all map[string]any
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, err
		}
		item := make(map[string]any, len(fields))
		for _, f := range fields {
			item[f] = all[f]
		}
		out = append(out, item)
	}
	return out, nil
}
