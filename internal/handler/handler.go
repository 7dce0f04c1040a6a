package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/nojgrade/internal/grade"
	"github.com/pavelanni/nojgrade/internal/gradebook"
	"github.com/pavelanni/nojgrade/internal/model"
	"github.com/pavelanni/nojgrade/internal/report"
	"github.com/pavelanni/nojgrade/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	defaults model.GradeConfig
}

// New creates a new Handler. defaults supplies the time zone and worker
// count for every report request.
func New(s *store.Store, defaults model.GradeConfig) (*Handler, error) {
	return &Handler{store: s, defaults: defaults}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/report", h.handleReport)
	r.Get("/homeworks", h.handleHomeworks)
	r.Get("/submissions", h.handleSubmissions)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.SubmissionCount()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	last, err := h.store.LastImport()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]any{"status": "ok", "submissions": count}
	if !last.IsZero() {
		resp["last_import"] = last
	}
	writeJSON(w, resp)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = report.FormatCSV
	}
	if !report.IsValidFormat(format) {
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}

	cfg, err := h.gradeConfig(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := gradebook.Report(r.Context(), h.store, cfg)
	if err != nil {
		if gradebook.IsUserError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("report failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	opts := report.Options{Format: format}
	if format == report.FormatTable {
		if opts.Names, err = h.store.ProblemNames(rep.Columns); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", report.ContentType(format))
	if err := report.Write(r.Context(), w, rep, opts); err != nil {
		slog.Error("write report", "error", err)
	}
}

// gradeConfig reads grading parameters from the query string. Repeated
// parameters and comma lists are both accepted for pid and weight.
func (h *Handler) gradeConfig(r *http.Request) (model.GradeConfig, error) {
	q := r.URL.Query()
	cfg := h.defaults
	cfg.Homework = q.Get("homework")
	cfg.Deadlines = q["deadline"]
	cfg.Weights = splitValues(q["weight"])
	cfg.Exclude = q.Get("exclude")
	if strings.HasPrefix(cfg.Exclude, "@") {
		return cfg, fmt.Errorf("exclude files are not available over HTTP")
	}
	pids, err := parseIDs(splitValues(q["pid"]))
	if err != nil {
		return cfg, err
	}
	cfg.ProblemIDs = pids
	return cfg, nil
}

func (h *Handler) handleHomeworks(w http.ResponseWriter, r *http.Request) {
	course := r.URL.Query().Get("course")
	if course == "" {
		http.Error(w, "course is required", http.StatusBadRequest)
		return
	}
	hws, err := h.store.ListHomeworks(course)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	type item struct {
		Course string `json:"course"`
		Name   string `json:"name"`
		Start  string `json:"start"`
		End    string `json:"end"`
	}
	out := make([]item, 0, len(hws))
	for _, hw := range hws {
		out = append(out, item{
			Course: hw.Course,
			Name:   hw.Name,
			Start:  hw.Start.Format(time.RFC3339),
			End:    hw.End.Format(time.RFC3339),
		})
	}
	writeJSON(w, out)
}

func (h *Handler) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pids, err := parseIDs(splitValues(q["pid"]))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(pids) == 0 {
		http.Error(w, "pid is required", http.StatusBadRequest)
		return
	}
	filter := store.SubmissionFilter{ProblemIDs: pids, Username: q.Get("username")}
	if before := q.Get("before"); before != "" {
		if filter.Before, err = grade.ParseTime(before, h.defaults.Location); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	recs, err := h.store.ListSubmissions(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out, err := model.ProjectSubmissions(recs, splitValues(q["field"]))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIDs(values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid problem id %q", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
