// Package student contains the HTTP handlers for the student collection.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// Each exported function is a factory: it receives the stores it needs once
// at startup and returns the per-request handler. Handlers return a
// response.Result rather than writing to the wire; the router decides the
// status codes for each route.
//
//	router: response.Handle(policy, student.GetByID(store))
package student

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/types"
	"github.com/aanand-mishra/enrollment-api/internal/utils/response"
	"github.com/aanand-mishra/enrollment-api/internal/validation"
)

// Path is the collection URL; single-student links hang off it.
const Path = "/api/v2/students"

// Client-visible messages.
const (
	MessageNotFound = "Student does not exists"
	MessageConflict = "Student is already exists"
	MessageMe       = "Student Information"
)

// Link returns the canonical URL of one student.
func Link(id types.StudentID) string {
	return Path + "/" + url.PathEscape(string(id))
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/v2/students[?program=P]
// Returns every student, or only those whose program equals P exactly
// (case-sensitive). An unknown program yields an empty list, not an error.
// ─────────────────────────────────────────────────────────────────────────────
func List(store storage.StudentStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		program := r.URL.Query().Get("program")
		slog.Info("listing students", slog.String("program", program))

		students, err := store.ListStudents(r.Context())
		if err != nil {
			return response.Unexpected(err)
		}
		if program == "" {
			return response.OK("", students)
		}

		filtered := make([]types.Student, 0, len(students))
		for _, s := range students {
			if s.Program == program {
				filtered = append(filtered, s)
			}
		}
		return response.OK("", filtered)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/v2/students/{id}
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.StudentStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		id, err := validation.StudentID(r.PathValue("id"))
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("getting a student", slog.String("id", id.String()))

		s, err := store.FindStudent(r.Context(), id)
		if err != nil {
			return lookupFailure(err)
		}
		return response.OK(fmt.Sprintf("Student %s found", id), s).WithLink(Link(id))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses handles GET /api/v2/students/{id}/courses
// Resolves each enrolled course id against the course collection. A course
// id with no matching course still produces an (empty) entry.
//
// Success response (200 OK):
//
//	{ "success": true, "data": { "studentId": "S1", "courses": [ { "courseId": 101, "courseTitle": "Algorithms" }, {} ] } }
//
// ─────────────────────────────────────────────────────────────────────────────
func Courses(students storage.StudentStore, courses storage.CourseStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		id, err := validation.StudentID(r.PathValue("id"))
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("getting student courses", slog.String("id", id.String()))

		s, err := students.FindStudent(r.Context(), id)
		if err != nil {
			return lookupFailure(err)
		}
		catalog, err := courses.ListCourses(r.Context())
		if err != nil {
			return response.Unexpected(err)
		}

		return response.OK(fmt.Sprintf("Get courses detail of student %s", id), types.Enrollment(s, catalog)).
			WithLink(Link(id) + "/courses")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/v2/students
// Appends the student verbatim unless the id is taken.
//
// Request body (JSON):
//
//	{ "studentId": "650610001", "program": "CPE", "courses": [261207] }
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.StudentStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		slog.Info("creating a student")

		body, err := validation.ReadBody(r.Body)
		if err != nil {
			return response.Rejected(err)
		}
		s, err := validation.StudentCreate(body)
		if err != nil {
			return response.Rejected(err)
		}

		if err := store.InsertStudent(r.Context(), s); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return response.Conflict(MessageConflict)
			}
			return response.Unexpected(err)
		}

		slog.Info("student created", slog.String("id", s.StudentID.String()))
		return response.Created("", s).WithLink(Link(s.StudentID))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/v2/students
// The body names the student by studentId; any other field present
// overwrites the stored value, absent fields are kept.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.StudentStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		body, err := validation.ReadBody(r.Body)
		if err != nil {
			return response.Rejected(err)
		}
		patch, err := validation.StudentUpdate(body)
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("updating a student", slog.String("id", patch.StudentID.String()))

		merged, err := store.UpdateStudent(r.Context(), patch)
		if err != nil {
			return lookupFailure(err)
		}
		return response.OK(fmt.Sprintf("Student %s has been updated successfully", patch.StudentID), merged).
			WithLink(Link(patch.StudentID))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/v2/students
// Body: { "studentId": "..." }. The deleted record is not echoed back.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.StudentStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		body, err := validation.ReadBody(r.Body)
		if err != nil {
			return response.Rejected(err)
		}
		id, err := validation.StudentDelete(body)
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("deleting a student", slog.String("id", id.String()))

		if err := store.RemoveStudent(r.Context(), id); err != nil {
			return lookupFailure(err)
		}

		slog.Info("student deleted", slog.String("id", id.String()))
		return response.OK(fmt.Sprintf("Student %s has been deleted successfully", id), nil)
	}
}

// Me handles GET /me: the first student of the collection.
func Me(store storage.StudentStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		students, err := store.ListStudents(r.Context())
		if err != nil {
			return response.Unexpected(err)
		}
		if len(students) == 0 {
			return response.OK(MessageMe, nil)
		}
		return response.OK(MessageMe, students[0])
	}
}

func lookupFailure(err error) response.Result {
	if errors.Is(err, storage.ErrNotFound) {
		return response.NotFound(MessageNotFound)
	}
	return response.Unexpected(err)
}
