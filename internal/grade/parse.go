package grade

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var weightPattern = regexp.MustCompile(`^\d+=\d+$`)

// ParseWeights parses "<pid>=<percent>" entries. A repeated problem id keeps
// its first position and takes the last percent.
func ParseWeights(entries []string) (Weights, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	var w Weights
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if !weightPattern.MatchString(entry) {
			return nil, fmt.Errorf("%w: %q, want <pid>=<percent>", ErrMalformedWeight, entry)
		}
		pidStr, pctStr, _ := strings.Cut(entry, "=")
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedWeight, entry, err)
		}
		pct, err := strconv.Atoi(pctStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedWeight, entry, err)
		}
		if i := slices.IndexFunc(w, func(x Weight) bool { return x.ProblemID == pid }); i >= 0 {
			w[i].Percent = pct
			continue
		}
		w = append(w, Weight{ProblemID: pid, Percent: pct})
	}
	return w, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts ISO 8601 dates and date-times. Values without a zone
// are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// ParseDeadlines parses "<date>,<ratio>" entries with ratio in [0,100].
func ParseDeadlines(entries []string, loc *time.Location) ([]Checkpoint, error) {
	cps := make([]Checkpoint, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q, want <date>,<ratio>", ErrMalformedDeadline, entry)
		}
		at, err := ParseTime(parts[0], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDeadline, err)
		}
		ratio, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || ratio < 0 || ratio > 100 {
			return nil, fmt.Errorf("%w: %q: ratio must be an integer in [0, 100]", ErrMalformedDeadline, entry)
		}
		cps = append(cps, Checkpoint{Deadline: at, Ratio: ratio})
	}
	return cps, nil
}

// ParseExcludes reads a comma-separated list of names, or a newline-separated
// file when the value starts with "@". Names are trimmed and blanks dropped.
func ParseExcludes(value string) ([]string, error) {
	if value == "" {
		return nil, nil
	}
	var names []string
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read exclude file: %w", err)
		}
		names = strings.Split(string(data), "\n")
	} else {
		names = strings.Split(value, ",")
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}
