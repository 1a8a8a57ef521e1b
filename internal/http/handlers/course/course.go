// Package course contains the HTTP handlers for the course collection.
// They mirror the student handlers over the numeric courseId.
package course

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/utils/response"
	"github.com/aanand-mishra/enrollment-api/internal/validation"
)

// Path is the collection URL.
const Path = "/api/v2/courses"

// Client-visible messages. GET reports a missing course differently from
// PUT and DELETE.
const (
	MessageList       = "Courses Information"
	MessageNotFound   = "Course does not exists"
	MessageIDNotFound = "Course Id does not exists"
	MessageIDConflict = "Course Id already exists"
)

// Link returns the canonical URL of one course.
func Link(id int) string {
	return Path + "/" + strconv.Itoa(id)
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/v2/courses
// Returns the whole collection in insertion order.
//
// Success response (200 OK):
//
//	{ "success": true, "message": "Courses Information", "data": [ { "courseId": 261207, "courseTitle": "Basic Computer Engineering Lab" } ] }
//
// ─────────────────────────────────────────────────────────────────────────────
func List(store storage.CourseStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		slog.Info("listing courses")

		courses, err := store.ListCourses(r.Context())
		if err != nil {
			return response.Unexpected(err)
		}
		return response.OK(MessageList, courses)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/v2/courses/{id}
// The id must be a positive integer; a well-formed id with no course is a
// not-found, reported as "Course does not exists".
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.CourseStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		id, err := validation.CourseID(r.PathValue("id"))
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("getting a course", slog.Int("id", id))

		c, err := store.FindCourse(r.Context(), id)
		if err != nil {
			return lookupFailure(err, MessageNotFound)
		}
		return response.OK(fmt.Sprintf("Get course %d successfully", id), c).WithLink(Link(id))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/v2/courses
// Appends the course unless the id is taken.
//
// Request body (JSON):
//
//	{ "courseId": 261497, "courseTitle": "Full Stack Development", "instructors": ["Dome Potikanond"] }
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.CourseStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		slog.Info("creating a course")

		body, err := validation.ReadBody(r.Body)
		if err != nil {
			return response.Rejected(err)
		}
		c, err := validation.CourseCreate(body)
		if err != nil {
			return response.Rejected(err)
		}

		if err := store.InsertCourse(r.Context(), c); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return response.Conflict(MessageIDConflict)
			}
			return response.Unexpected(err)
		}

		slog.Info("course created", slog.Int("id", c.CourseID))
		return response.Created(fmt.Sprintf("Course %d has been added successfully", c.CourseID), c).
			WithLink(Link(c.CourseID))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/v2/courses
// Shallow merge: fields present in the body overwrite, absent fields stay.
//
// Request body (JSON):
//
//	{ "courseId": 261497, "instructors": ["Chinawat Isradisaikul"] }
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.CourseStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		body, err := validation.ReadBody(r.Body)
		if err != nil {
			return response.Rejected(err)
		}
		patch, err := validation.CourseUpdate(body)
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("updating a course", slog.Int("id", patch.CourseID))

		merged, err := store.UpdateCourse(r.Context(), patch)
		if err != nil {
			return lookupFailure(err, MessageIDNotFound)
		}
		return response.OK(fmt.Sprintf("Course %d has been updated successfully", patch.CourseID), merged).
			WithLink(Link(patch.CourseID))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/v2/courses
// Body: { "courseId": 261497 }. Unlike the student variant, the response
// carries the collection as it stands after the removal.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.CourseStore) response.HandlerFunc {
	return func(r *http.Request) response.Result {
		body, err := validation.ReadBody(r.Body)
		if err != nil {
			return response.Rejected(err)
		}
		id, err := validation.CourseDelete(body)
		if err != nil {
			return response.Rejected(err)
		}
		slog.Info("deleting a course", slog.Int("id", id))

		rest, err := store.RemoveCourse(r.Context(), id)
		if err != nil {
			return lookupFailure(err, MessageIDNotFound)
		}
		return response.OK(fmt.Sprintf("Course %d has been deleted successfully", id), rest)
	}
}

func lookupFailure(err error, message string) response.Result {
	if errors.Is(err, storage.ErrNotFound) {
		return response.NotFound(message)
	}
	return response.Unexpected(err)
}
