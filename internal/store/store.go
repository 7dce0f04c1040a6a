package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/nojgrade/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		problem_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		language_type INTEGER NOT NULL DEFAULT 0,
		run_time INTEGER NOT NULL DEFAULT 0,
		memory_usage INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		last_send DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_problem ON submissions(problem_id, created_at);

	CREATE TABLE IF NOT EXISTS problems (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS homeworks (
		id TEXT PRIMARY KEY,
		course TEXT NOT NULL,
		name TEXT NOT NULL,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		UNIQUE (course, name)
	);

	CREATE TABLE IF NOT EXISTS homework_problems (
		homework_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		problem_id INTEGER NOT NULL,
		PRIMARY KEY (homework_id, position),
		FOREIGN KEY (homework_id) REFERENCES homeworks(id)
	);

	CREATE TABLE IF NOT EXISTS homework_students (
		homework_id TEXT NOT NULL,
		username TEXT NOT NULL,
		PRIMARY KEY (homework_id, username),
		FOREIGN KEY (homework_id) REFERENCES homeworks(id)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertSubmissions stores submissions, replacing any with the same ID.
func (s *Store) UpsertSubmissions(recs []model.SubmissionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO submissions (id, username, problem_id, score, status, language_type, run_time, memory_usage, created_at, last_send)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			problem_id = excluded.problem_id,
			score = excluded.score,
			status = excluded.status,
			language_type = excluded.language_type,
			run_time = excluded.run_time,
			memory_usage = excluded.memory_usage,
			created_at = excluded.created_at,
			last_send = excluded.last_send`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.Exec(r.ID, r.Username, r.ProblemID, r.Score, r.Status, r.LanguageType,
			r.RunTime, r.MemoryUsage, r.CreatedAt.UTC(), r.LastSend.UTC())
		if err != nil {
			return fmt.Errorf("insert submission %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// SubmissionFilter narrows ListSubmissions. Zero values mean no filtering.
type SubmissionFilter struct {
	ProblemIDs []int
	Username   string
	Before     time.Time
	After      time.Time
}

// ListSubmissions returns submissions matching the filter, oldest first.
func (s *Store) ListSubmissions(f SubmissionFilter) ([]model.SubmissionRecord, error) {
	query := `SELECT id, username, problem_id, score, status, language_type, run_time, memory_usage, created_at, last_send
		FROM submissions WHERE 1=1`
	var args []any
	if len(f.ProblemIDs) > 0 {
		query += ` AND problem_id IN (?` + strings.Repeat(`, ?`, len(f.ProblemIDs)-1) + `)`
		for _, pid := range f.ProblemIDs {
			args = append(args, pid)
		}
	}
	if f.Username != "" {
		query += ` AND username = ?`
		args = append(args, f.Username)
	}
	if !f.Before.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, f.Before.UTC())
	}
	if !f.After.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, f.After.UTC())
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.SubmissionRecord
	for rows.Next() {
		var r model.SubmissionRecord
		if err := rows.Scan(&r.ID, &r.Username, &r.ProblemID, &r.Score, &r.Status, &r.LanguageType,
			&r.RunTime, &r.MemoryUsage, &r.CreatedAt, &r.LastSend); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ListSubmissionsByProblem returns every submission to one problem.
func (s *Store) ListSubmissionsByProblem(problemID int) ([]model.SubmissionRecord, error) {
	return s.ListSubmissions(SubmissionFilter{ProblemIDs: []int{problemID}})
}

// SubmissionCount returns the number of stored submissions.
func (s *Store) SubmissionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM submissions`).Scan(&count)
	return count, err
}

// UpsertProblems stores problem names.
func (s *Store) UpsertProblems(problems []model.Problem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range problems {
		_, err := tx.Exec(
			`INSERT INTO problems (id, name, status) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, status = excluded.status`,
			p.ID, p.Name, p.Status,
		)
		if err != nil {
			return fmt.Errorf("insert problem %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// ProblemNames returns the names of the given problems that are known.
func (s *Store) ProblemNames(ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	for _, id := range ids {
		var name string
		err := s.db.QueryRow(`SELECT name FROM problems WHERE id = ?`, id).Scan(&name)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, nil
}
