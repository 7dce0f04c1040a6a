package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/pavelanni/nojgrade/internal/grade"
	"github.com/pavelanni/nojgrade/internal/i18n"
)

// Output formats.
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatTable = "table"
)

// IsValidFormat reports whether f names a supported output format.
func IsValidFormat(f string) bool {
	switch f {
	case FormatCSV, FormatJSON, FormatTable:
		return true
	}
	return false
}

// ContentType returns the MIME type of a format.
func ContentType(f string) string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatTable:
		return "text/plain; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Options tunes rendering. Names maps problem ids to display names in the
// table format.
type Options struct {
	Format string
	Names  map[int]string
}

type jsonRow struct {
	StudentID string             `json:"student_id"`
	Scores    map[string]float64 `json:"scores"`
	Total     float64            `json:"total"`
}

type jsonReport struct {
	Columns []int     `json:"columns"`
	Rows    []jsonRow `json:"rows"`
}

// Write renders rep to w. The table format localizes its headers with the
// localizer carried by ctx.
func Write(ctx context.Context, w io.Writer, rep *grade.Report, opts Options) error {
	switch opts.Format {
	case FormatCSV, "":
		return writeCSV(w, rep)
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatTable:
		return writeTable(ctx, w, rep, opts.Names)
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
}

// WriteFile renders rep fully and then moves it into place, so a failed run
// never leaves a partial file at path. "-" writes to stdout.
func WriteFile(ctx context.Context, path string, rep *grade.Report, opts Options) error {
	var buf bytes.Buffer
	if err := Write(ctx, &buf, rep, opts); err != nil {
		return err
	}
	if path == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rep *grade.Report) error {
	cw := csv.NewWriter(w)
	header := []string{"student_id"}
	for _, pid := range rep.Columns {
		header = append(header, strconv.Itoa(pid))
	}
	header = append(header, "total")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rep.Rows {
		record := []string{row.StudentID}
		for _, s := range row.Scores {
			record = append(record, formatScore(s))
		}
		record = append(record, formatScore(row.Total))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row for %s: %w", row.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, rep *grade.Report) error {
	out := jsonReport{Columns: rep.Columns, Rows: make([]jsonRow, 0, len(rep.Rows))}
	if out.Columns == nil {
		out.Columns = []int{}
	}
	for _, row := range rep.Rows {
		jr := jsonRow{StudentID: row.StudentID, Scores: make(map[string]float64, len(row.Scores)), Total: row.Total}
		for i, pid := range rep.Columns {
			jr.Scores[strconv.Itoa(pid)] = row.Scores[i]
		}
		out.Rows = append(out.Rows, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTable(ctx context.Context, w io.Writer, rep *grade.Report, names map[int]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, i18n.T(ctx, "StudentID"), "\t")
	for _, pid := range rep.Columns {
		if name, ok := names[pid]; ok {
			fmt.Fprint(tw, i18n.Td(ctx, "ProblemNamed", map[string]any{"ID": pid, "Name": name}), "\t")
		} else {
			fmt.Fprint(tw, i18n.Td(ctx, "ProblemN", map[string]any{"ID": pid}), "\t")
		}
	}
	fmt.Fprint(tw, i18n.T(ctx, "Total"), "\t\n")

	for _, row := range rep.Rows {
		fmt.Fprint(tw, row.StudentID, "\t")
		for _, s := range row.Scores {
			fmt.Fprint(tw, strconv.FormatFloat(s, 'f', 2, 64), "\t")
		}
		fmt.Fprint(tw, strconv.FormatFloat(row.Total, 'f', 2, 64), "\t\n")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, i18n.Tp(ctx, "StudentsGraded", len(rep.Rows)))
	return err
}

// formatScore prints integral scores with one decimal ("80.0") and others
// in their shortest exact form.
func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
