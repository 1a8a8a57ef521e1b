// Package sqlite provides a SQLite-backed implementation of storage.Storage
// using Go's standard database/sql package.
//
// The default DSN is an in-memory database, so the backend keeps the
// "nothing survives a restart" contract of the memory store while routing
// every read and write through real SQL. Pointing storage.path at a file
// works too.
//
// Insertion order is the table's AUTOINCREMENT rowid: updates keep it,
// deletes remove the row. Slice fields are stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/types"

	// Importing the driver registers "sqlite3" with database/sql; its error
	// type is also used to detect UNIQUE violations.
	"github.com/mattn/go-sqlite3"
)

// DefaultDSN is a private in-memory database.
const DefaultDSN = ":memory:"

// SQLite is the concrete implementation of storage.Storage.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the database at dsn and creates both tables if needed.
//
// The pool is capped at one connection: an in-memory SQLite database is
// per-connection, and a single connection also serialises every
// find-then-mutate transaction.
func New(dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			pos        INTEGER PRIMARY KEY AUTOINCREMENT,
			student_id TEXT    NOT NULL UNIQUE,
			program    TEXT    NOT NULL,
			courses    TEXT    NOT NULL,
			extra      TEXT    NOT NULL DEFAULT 'null'
		);
		CREATE TABLE IF NOT EXISTS courses (
			pos          INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id    INTEGER NOT NULL UNIQUE,
			course_title TEXT    NOT NULL,
			instructors  TEXT    NOT NULL,
			extra        TEXT    NOT NULL DEFAULT 'null'
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var (
		st      types.Student
		id      string
		courses string
		extra   string
		err     error
	)
	if err := row.Scan(&id, &st.Program, &courses, &extra); err != nil {
		return types.Student{}, err
	}
	st.StudentID = types.StudentID(id)
	if err := json.Unmarshal([]byte(courses), &st.Courses); err != nil {
		return types.Student{}, fmt.Errorf("decode courses of %s: %w", id, err)
	}
	if st.Courses == nil {
		st.Courses = []int{}
	}
	if st.Extra, err = decodeExtra(extra); err != nil {
		return types.Student{}, fmt.Errorf("decode extra of %s: %w", id, err)
	}
	return st, nil
}

func scanCourse(row scanner) (types.Course, error) {
	var (
		c           types.Course
		instructors string
		extra       string
		err         error
	)
	if err = row.Scan(&c.CourseID, &c.CourseTitle, &instructors, &extra); err != nil {
		return types.Course{}, err
	}
	if err := json.Unmarshal([]byte(instructors), &c.Instructors); err != nil {
		return types.Course{}, fmt.Errorf("decode instructors of %d: %w", c.CourseID, err)
	}
	if c.Extra, err = decodeExtra(extra); err != nil {
		return types.Course{}, fmt.Errorf("decode extra of %d: %w", c.CourseID, err)
	}
	return c, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLite) ListStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT student_id, program, courses, extra FROM students ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}
	return students, nil
}

func (s *SQLite) FindStudent(ctx context.Context, id types.StudentID) (types.Student, error) {
	return findStudent(ctx, s.Db, id)
}

// querier lets lookups run on the pool or inside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findStudent(ctx context.Context, q querier, id types.StudentID) (types.Student, error) {
	st, err := scanStudent(q.QueryRowContext(ctx,
		"SELECT student_id, program, courses, extra FROM students WHERE student_id = ? LIMIT 1", string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("FindStudent: scan: %w", err)
	}
	return st, nil
}

func (s *SQLite) InsertStudent(ctx context.Context, st types.Student) error {
	courses, err := json.Marshal(orEmpty(st.Courses))
	if err != nil {
		return fmt.Errorf("InsertStudent: encode courses: %w", err)
	}

	extra, err := json.Marshal(st.Extra)
	if err != nil {
		return fmt.Errorf("InsertStudent: encode extra: %w", err)
	}

	_, err = s.Db.ExecContext(ctx,
		"INSERT INTO students (student_id, program, courses, extra) VALUES (?, ?, ?, ?)",
		string(st.StudentID), st.Program, string(courses), string(extra))
	if isUniqueViolation(err) {
		return fmt.Errorf("student %s: %w", st.StudentID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("InsertStudent: exec: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateStudent(ctx context.Context, p types.StudentPatch) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	current, err := findStudent(ctx, tx, p.StudentID)
	if err != nil {
		return types.Student{}, err
	}
	merged := p.Apply(current)

	courses, err := json.Marshal(orEmpty(merged.Courses))
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: encode courses: %w", err)
	}
	extra, err := json.Marshal(merged.Extra)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: encode extra: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE students SET program = ?, courses = ?, extra = ? WHERE student_id = ?",
		merged.Program, string(courses), string(extra), string(p.StudentID)); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: exec: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: commit: %w", err)
	}
	return merged, nil
}

func (s *SQLite) RemoveStudent(ctx context.Context, id types.StudentID) error {
	res, err := s.Db.ExecContext(ctx, "DELETE FROM students WHERE student_id = ?", string(id))
	if err != nil {
		return fmt.Errorf("RemoveStudent: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RemoveStudent: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listCourses(ctx context.Context, q rowsQuerier) ([]types.Course, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT course_id, course_title, instructors, extra FROM courses ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("ListCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCourses: scan row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCourses: rows iteration: %w", err)
	}
	return courses, nil
}

func (s *SQLite) ListCourses(ctx context.Context) ([]types.Course, error) {
	return listCourses(ctx, s.Db)
}

func (s *SQLite) FindCourse(ctx context.Context, id int) (types.Course, error) {
	return findCourse(ctx, s.Db, id)
}

func findCourse(ctx context.Context, q querier, id int) (types.Course, error) {
	c, err := scanCourse(q.QueryRowContext(ctx,
		"SELECT course_id, course_title, instructors, extra FROM courses WHERE course_id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Course{}, fmt.Errorf("course %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Course{}, fmt.Errorf("FindCourse: scan: %w", err)
	}
	return c, nil
}

func (s *SQLite) InsertCourse(ctx context.Context, c types.Course) error {
	instructors, err := json.Marshal(c.Instructors)
	if err != nil {
		return fmt.Errorf("InsertCourse: encode instructors: %w", err)
	}

	extra, err := json.Marshal(c.Extra)
	if err != nil {
		return fmt.Errorf("InsertCourse: encode extra: %w", err)
	}

	_, err = s.Db.ExecContext(ctx,
		"INSERT INTO courses (course_id, course_title, instructors, extra) VALUES (?, ?, ?, ?)",
		c.CourseID, c.CourseTitle, string(instructors), string(extra))
	if isUniqueViolation(err) {
		return fmt.Errorf("course %d: %w", c.CourseID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("InsertCourse: exec: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateCourse(ctx context.Context, p types.CoursePatch) (types.Course, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Course{}, fmt.Errorf("UpdateCourse: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	current, err := findCourse(ctx, tx, p.CourseID)
	if err != nil {
		return types.Course{}, err
	}
	merged := p.Apply(current)

	instructors, err := json.Marshal(merged.Instructors)
	if err != nil {
		return types.Course{}, fmt.Errorf("UpdateCourse: encode instructors: %w", err)
	}
	extra, err := json.Marshal(merged.Extra)
	if err != nil {
		return types.Course{}, fmt.Errorf("UpdateCourse: encode extra: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE courses SET course_title = ?, instructors = ?, extra = ? WHERE course_id = ?",
		merged.CourseTitle, string(instructors), string(extra), p.CourseID); err != nil {
		return types.Course{}, fmt.Errorf("UpdateCourse: exec: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Course{}, fmt.Errorf("UpdateCourse: commit: %w", err)
	}
	return merged, nil
}

func (s *SQLite) RemoveCourse(ctx context.Context, id int) ([]types.Course, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RemoveCourse: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE course_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("RemoveCourse: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("RemoveCourse: rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("course %d: %w", id, storage.ErrNotFound)
	}

	rest, err := listCourses(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RemoveCourse: commit: %w", err)
	}
	return rest, nil
}

// decodeExtra reads an extra column; "null" and "{}" both mean none.
func decodeExtra(raw string) (types.Extra, error) {
	var e types.Extra
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	if len(e) == 0 {
		return nil, nil
	}
	return e, nil
}

func orEmpty(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
