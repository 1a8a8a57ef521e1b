// Package types holds the shared data structures (models) used across the
// application. Keeping them in one place prevents import cycles: handlers,
// storage, and validation can all import types without depending on each
// other.
package types

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// StudentID identifies a student. Clients may send it as a JSON string or a
// JSON number; either way it is held (and compared) as its text form, which
// is also what the URL path parameter carries.
type StudentID string

// UnmarshalJSON accepts `"S1"` and `650610001` alike. Numbers must be
// integer-valued and are stored in canonical decimal form. null is a no-op
// so the "required" rule reports the missing value instead of a type error.
func (id *StudentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StudentID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return &json.UnmarshalTypeError{
			Value: jsonKind(b),
			Type:  reflect.TypeOf(""),
		}
	}
	canonical, ok := integerText(n)
	if !ok {
		return &json.UnmarshalTypeError{
			Value: "number " + n.String(),
			Type:  reflect.TypeOf(int64(0)),
		}
	}
	*id = StudentID(canonical)
	return nil
}

// maxExactInteger is the largest integer a JSON client can send as a
// number without losing precision.
const maxExactInteger = 1 << 53

// integerText renders an integer-valued number in plain decimal, so 100,
// 1e2 and 100.0 name the same student. Fractions and integers beyond
// maxExactInteger are rejected.
func integerText(n json.Number) (string, bool) {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		if i > maxExactInteger || i < -maxExactInteger {
			return "", false
		}
		return strconv.FormatInt(i, 10), true
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// String implements fmt.Stringer.
func (id StudentID) String() string { return string(id) }

func jsonKind(b []byte) string {
	if len(b) == 0 {
		return "value"
	}
	switch b[0] {
	case 't', 'f':
		return "bool"
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "value"
	}
}

// Student represents a student record.
//
// Courses is a list of course ids. It is a back-reference only; nothing
// checks that the referenced courses exist.
type Student struct {
	StudentID StudentID `json:"studentId"`
	Program   string    `json:"program"`
	Courses   []int     `json:"courses"`

	// Extra carries any other fields the client sent.
	Extra Extra `json:"-"`
}

// Course represents a course record.
type Course struct {
	CourseID    int      `json:"courseId"`
	CourseTitle string   `json:"courseTitle"`
	Instructors []string `json:"instructors,omitempty"`

	// Extra carries any other descriptive fields the client sent.
	Extra Extra `json:"-"`
}

// StudentPatch is a partial update. StudentID selects the record; nil fields
// are left untouched by Apply.
type StudentPatch struct {
	StudentID StudentID
	Program   *string
	Courses   *[]int
	Extra     Extra
}

// Apply returns s with every field present in p overwritten (shallow merge).
// s itself is not modified.
func (p StudentPatch) Apply(s Student) Student {
	out := s.Clone()
	out.StudentID = p.StudentID
	if p.Program != nil {
		out.Program = *p.Program
	}
	if p.Courses != nil {
		out.Courses = slices.Clone(*p.Courses)
	}
	out.Extra = out.Extra.Merge(p.Extra)
	return out
}

// CoursePatch is a partial update of a course keyed by CourseID.
type CoursePatch struct {
	CourseID    int
	CourseTitle *string
	Instructors *[]string
	Extra       Extra
}

// Apply returns c with every field present in p overwritten.
func (p CoursePatch) Apply(c Course) Course {
	out := c.Clone()
	out.CourseID = p.CourseID
	if p.CourseTitle != nil {
		out.CourseTitle = *p.CourseTitle
	}
	if p.Instructors != nil {
		out.Instructors = slices.Clone(*p.Instructors)
	}
	out.Extra = out.Extra.Merge(p.Extra)
	return out
}

// Clone returns a deep copy so callers can't mutate stored slices.
func (s Student) Clone() Student {
	s.Courses = slices.Clone(s.Courses)
	s.Extra = s.Extra.Clone()
	return s
}

// Clone returns a deep copy so callers can't mutate stored slices.
func (c Course) Clone() Course {
	c.Instructors = slices.Clone(c.Instructors)
	c.Extra = c.Extra.Clone()
	return c
}

// EnrolledCourse is one row of a student's course listing. Both fields are
// nil (and omitted from JSON) when the referenced course does not exist.
type EnrolledCourse struct {
	CourseID    *int    `json:"courseId,omitempty"`
	CourseTitle *string `json:"courseTitle,omitempty"`
}

// StudentCourses is the body of GET /students/{id}/courses.
type StudentCourses struct {
	StudentID StudentID        `json:"studentId"`
	Courses   []EnrolledCourse `json:"courses"`
}

// Enrollment resolves every course id of s against catalog, in order.
// Dangling ids are kept as empty entries rather than dropped.
func Enrollment(s Student, catalog []Course) StudentCourses {
	out := StudentCourses{
		StudentID: s.StudentID,
		Courses:   make([]EnrolledCourse, 0, len(s.Courses)),
	}
	for _, id := range s.Courses {
		var entry EnrolledCourse
		if i := slices.IndexFunc(catalog, func(c Course) bool { return c.CourseID == id }); i >= 0 {
			cid, title := catalog[i].CourseID, catalog[i].CourseTitle
			entry = EnrolledCourse{CourseID: &cid, CourseTitle: &title}
		}
		out.Courses = append(out.Courses, entry)
	}
	return out
}
