// Package storage defines the store contracts that any backend must satisfy
// to work with this application.
//
// Handlers depend only on these interfaces, so tests can hand each handler
// an isolated store instead of sharing process-wide state, and the memory
// backend can be swapped for SQLite with a config change.
//
// Every method that searches and then mutates does so atomically: a backend
// must never let two requests interleave between the lookup and the write.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/enrollment-api/internal/types"
)

// Sentinel errors returned (possibly wrapped) by every backend.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// StudentStore is the student collection contract.
type StudentStore interface {
	// ListStudents returns every student in insertion order. It returns an
	// empty slice, never nil, when the collection is empty.
	ListStudents(ctx context.Context) ([]types.Student, error)

	// FindStudent returns the student with the given id or ErrNotFound.
	FindStudent(ctx context.Context, id types.StudentID) (types.Student, error)

	// InsertStudent appends s unless its id is taken (ErrConflict).
	InsertStudent(ctx context.Context, s types.Student) error

	// UpdateStudent shallow-merges p into the stored record and returns the
	// merged result, or ErrNotFound.
	UpdateStudent(ctx context.Context, p types.StudentPatch) (types.Student, error)

	// RemoveStudent removes the first student with the given id, or
	// returns ErrNotFound.
	RemoveStudent(ctx context.Context, id types.StudentID) error
}

// CourseStore is the course collection contract.
type CourseStore interface {
	ListCourses(ctx context.Context) ([]types.Course, error)
	FindCourse(ctx context.Context, id int) (types.Course, error)
	InsertCourse(ctx context.Context, c types.Course) error
	UpdateCourse(ctx context.Context, p types.CoursePatch) (types.Course, error)

	// RemoveCourse removes the course and returns what is left of the
	// collection, read under the same lock as the removal.
	RemoveCourse(ctx context.Context, id int) ([]types.Course, error)
}

// Storage bundles both collections. It is what main wires into the router.
type Storage interface {
	StudentStore
	CourseStore
	Close() error
}
