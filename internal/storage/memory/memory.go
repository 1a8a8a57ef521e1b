// Package memory provides the default in-process implementation of
// storage.Storage: two ordered slices, each guarded by its own mutex.
//
// Nothing is persisted; the collections live exactly as long as the value.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/types"
)

// Memory is the concrete in-memory store. The zero value is not usable;
// call New.
type Memory struct {
	smu      sync.RWMutex
	students []types.Student

	cmu     sync.RWMutex
	courses []types.Course
}

// New returns an empty store.
func New() *Memory {
	return &Memory{
		students: make([]types.Student, 0),
		courses:  make([]types.Course, 0),
	}
}

var _ storage.Storage = (*Memory)(nil)

// Close is a no-op; it exists to satisfy storage.Storage.
func (m *Memory) Close() error { return nil }

// ListStudents returns copies of every student in insertion order.
func (m *Memory) ListStudents(_ context.Context) ([]types.Student, error) {
	m.smu.RLock()
	defer m.smu.RUnlock()

	out := make([]types.Student, len(m.students))
	for i, s := range m.students {
		out[i] = s.Clone()
	}
	return out, nil
}

// FindStudent returns a copy of the student with the given id.
func (m *Memory) FindStudent(_ context.Context, id types.StudentID) (types.Student, error) {
	m.smu.RLock()
	defer m.smu.RUnlock()

	i := m.studentIndex(id)
	if i < 0 {
		return types.Student{}, fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	return m.students[i].Clone(), nil
}

// InsertStudent appends s unless its id is already taken.
func (m *Memory) InsertStudent(_ context.Context, s types.Student) error {
	m.smu.Lock()
	defer m.smu.Unlock()

	if m.studentIndex(s.StudentID) >= 0 {
		return fmt.Errorf("student %s: %w", s.StudentID, storage.ErrConflict)
	}
	m.students = append(m.students, s.Clone())
	return nil
}

// UpdateStudent merges p into the stored student in place, keeping its
// position, and returns the result.
func (m *Memory) UpdateStudent(_ context.Context, p types.StudentPatch) (types.Student, error) {
	m.smu.Lock()
	defer m.smu.Unlock()

	i := m.studentIndex(p.StudentID)
	if i < 0 {
		return types.Student{}, fmt.Errorf("student %s: %w", p.StudentID, storage.ErrNotFound)
	}
	m.students[i] = p.Apply(m.students[i])
	return m.students[i].Clone(), nil
}

// RemoveStudent deletes the student with the given id.
func (m *Memory) RemoveStudent(_ context.Context, id types.StudentID) error {
	m.smu.Lock()
	defer m.smu.Unlock()

	i := m.studentIndex(id)
	if i < 0 {
		return fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	m.students = slices.Delete(m.students, i, i+1)
	return nil
}

// studentIndex must be called with smu held.
func (m *Memory) studentIndex(id types.StudentID) int {
	return slices.IndexFunc(m.students, func(s types.Student) bool { return s.StudentID == id })
}

// ListCourses returns copies of every course in insertion order.
func (m *Memory) ListCourses(_ context.Context) ([]types.Course, error) {
	m.cmu.RLock()
	defer m.cmu.RUnlock()
	return m.coursesLocked(), nil
}

// FindCourse returns a copy of the course with the given id.
func (m *Memory) FindCourse(_ context.Context, id int) (types.Course, error) {
	m.cmu.RLock()
	defer m.cmu.RUnlock()

	i := m.courseIndex(id)
	if i < 0 {
		return types.Course{}, fmt.Errorf("course %d: %w", id, storage.ErrNotFound)
	}
	return m.courses[i].Clone(), nil
}

// InsertCourse appends c unless its id is already taken.
func (m *Memory) InsertCourse(_ context.Context, c types.Course) error {
	m.cmu.Lock()
	defer m.cmu.Unlock()

	if m.courseIndex(c.CourseID) >= 0 {
		return fmt.Errorf("course %d: %w", c.CourseID, storage.ErrConflict)
	}
	m.courses = append(m.courses, c.Clone())
	return nil
}

// UpdateCourse merges p into the stored course in place.
func (m *Memory) UpdateCourse(_ context.Context, p types.CoursePatch) (types.Course, error) {
	m.cmu.Lock()
	defer m.cmu.Unlock()

	i := m.courseIndex(p.CourseID)
	if i < 0 {
		return types.Course{}, fmt.Errorf("course %d: %w", p.CourseID, storage.ErrNotFound)
	}
	m.courses[i] = p.Apply(m.courses[i])
	return m.courses[i].Clone(), nil
}

// RemoveCourse deletes the course and returns the courses left, read
// before the lock is released.
func (m *Memory) RemoveCourse(_ context.Context, id int) ([]types.Course, error) {
	m.cmu.Lock()
	defer m.cmu.Unlock()

	i := m.courseIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("course %d: %w", id, storage.ErrNotFound)
	}
	m.courses = slices.Delete(m.courses, i, i+1)
	return m.coursesLocked(), nil
}

// courseIndex must be called with cmu held.
func (m *Memory) courseIndex(id int) int {
	return slices.IndexFunc(m.courses, func(c types.Course) bool { return c.CourseID == id })
}

func (m *Memory) coursesLocked() []types.Course {
	out := make([]types.Course, len(m.courses))
	for i, c := range m.courses {
		out[i] = c.Clone()
	}
	return out
}
