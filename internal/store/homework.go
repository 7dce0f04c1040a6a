package store

import (
	"database/sql"
	"log/slog"

	"github.com/pavelanni/nojgrade/internal/model"
)

// UpsertHomework stores a homework and replaces its problem list and roster.
func (s *Store) UpsertHomework(hw model.Homework) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO homeworks (id, course, name, start_at, end_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET course = excluded.course, name = excluded.name,
			start_at = excluded.start_at, end_at = excluded.end_at`,
		hw.ID, hw.Course, hw.Name, hw.Start.UTC(), hw.End.UTC(),
	)
	if err != nil {
		slog.Error("failed to store homework", "homework", hw.Key(), "error", err)
		return err
	}
	if _, err := tx.Exec(`DELETE FROM homework_problems WHERE homework_id = ?`, hw.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM homework_students WHERE homework_id = ?`, hw.ID); err != nil {
		return err
	}
	for i, pid := range hw.ProblemIDs {
		if _, err := tx.Exec(
			`INSERT INTO homework_problems (homework_id, position, problem_id) VALUES (?, ?, ?)`,
			hw.ID, i, pid,
		); err != nil {
			return err
		}
	}
	for _, u := range hw.Students {
		if _, err := tx.Exec(
			`INSERT INTO homework_students (homework_id, username) VALUES (?, ?)`, hw.ID, u,
		); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("stored homework", "homework", hw.Key(), "problems", len(hw.ProblemIDs), "students", len(hw.Students))
	return nil
}

// GetHomework returns a homework by course and name, or nil if there is none.
func (s *Store) GetHomework(course, name string) (*model.Homework, error) {
	var hw model.Homework
	err := s.db.QueryRow(
		`SELECT id, course, name, start_at, end_at FROM homeworks WHERE course = ? AND name = ?`,
		course, name,
	).Scan(&hw.ID, &hw.Course, &hw.Name, &hw.Start, &hw.End)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Read each result set fully before the next query; an in-memory
	// database lives on a single connection.
	pids, err := s.db.Query(
		`SELECT problem_id FROM homework_problems WHERE homework_id = ? ORDER BY position`, hw.ID,
	)
	if err != nil {
		return nil, err
	}
	for pids.Next() {
		var pid int
		if err := pids.Scan(&pid); err != nil {
			pids.Close()
			return nil, err
		}
		hw.ProblemIDs = append(hw.ProblemIDs, pid)
	}
	pids.Close()
	if err := pids.Err(); err != nil {
		return nil, err
	}

	students, err := s.db.Query(
		`SELECT username FROM homework_students WHERE homework_id = ? ORDER BY username`, hw.ID,
	)
	if err != nil {
		return nil, err
	}
	defer students.Close()
	hw.Students = []string{}
	for students.Next() {
		var u string
		if err := students.Scan(&u); err != nil {
			return nil, err
		}
		hw.Students = append(hw.Students, u)
	}
	return &hw, students.Err()
}

// ListHomeworks returns every homework of a course without problems or roster.
func (s *Store) ListHomeworks(course string) ([]model.Homework, error) {
	rows, err := s.db.Query(
		`SELECT id, course, name, start_at, end_at FROM homeworks WHERE course = ? ORDER BY start_at, name`, course,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hws []model.Homework
	for rows.Next() {
		var hw model.Homework
		if err := rows.Scan(&hw.ID, &hw.Course, &hw.Name, &hw.Start, &hw.End); err != nil {
			return nil, err
		}
		hws = append(hws, hw)
	}
	return hws, rows.Err()
}
