package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aanand-mishra/enrollment-api/internal/types"

	. "github.com/smartystreets/goconvey/convey"
)

// firstIssue asserts err is a *Error and returns its first issue.
func firstIssue(err error) string {
	var ve *Error
	So(errors.As(err, &ve), ShouldBeTrue)
	So(ve.Issues, ShouldNotBeEmpty)
	return ve.First()
}

func TestIdentifiers(t *testing.T) {
	Convey("Given student ids from the URL", t, func() {
		Convey("A plain id is accepted", func() {
			id, err := StudentID("650610001")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, types.StudentID("650610001"))
		})

		Convey("An overlong id is rejected", func() {
			_, err := StudentID(strings.Repeat("x", 65))
			So(firstIssue(err), ShouldEqual, "studentId must be at most 64 characters")
		})

		Convey("Non-ASCII ids are rejected", func() {
			_, err := StudentID("นักศึกษา")
			So(firstIssue(err), ShouldEqual, "studentId must contain printable ASCII characters only")
		})

		Convey("An empty id is rejected", func() {
			_, err := StudentID("")
			So(firstIssue(err), ShouldEqual, "studentId is required")
		})
	})

	Convey("Given course ids from the URL", t, func() {
		Convey("A positive integer is accepted", func() {
			id, err := CourseID("261207")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 261207)
		})

		Convey("Text is not a number", func() {
			_, err := CourseID("abc")
			So(firstIssue(err), ShouldEqual, "courseId must be a number")
		})

		Convey("Negative ids are rejected", func() {
			_, err := CourseID("-4")
			So(firstIssue(err), ShouldEqual, "courseId must be a positive integer")
		})

		Convey("Zero counts as missing", func() {
			_, err := CourseID("0")
			So(firstIssue(err), ShouldEqual, "courseId is required")
		})
	})
}

func TestStudentBodies(t *testing.T) {
	Convey("Given a student create body", t, func() {
		Convey("A complete body yields the student verbatim", func() {
			s, err := StudentCreate([]byte(`{"studentId":"S1","program":"CS","courses":[101]}`))
			So(err, ShouldBeNil)
			So(s, ShouldResemble, types.Student{StudentID: "S1", Program: "CS", Courses: []int{101}})
		})

		Convey("A numeric studentId is accepted as text", func() {
			s, err := StudentCreate([]byte(`{"studentId":650610001,"program":"CPE","courses":[]}`))
			So(err, ShouldBeNil)
			So(s.StudentID, ShouldEqual, types.StudentID("650610001"))
			So(s.Courses, ShouldNotBeNil)
		})

		Convey("Every missing field is reported, first one first", func() {
			_, err := StudentCreate([]byte(`{}`))
			var ve *Error
			So(errors.As(err, &ve), ShouldBeTrue)
			So(ve.Issues, ShouldResemble, []string{
				"studentId is required",
				"program is required",
				"courses is required",
			})
		})

		Convey("A wrongly typed field names the field", func() {
			_, err := StudentCreate([]byte(`{"studentId":"S1","program":42,"courses":[]}`))
			So(firstIssue(err), ShouldEqual, "program must be a string")
		})

		Convey("A non-positive course reference is rejected", func() {
			_, err := StudentCreate([]byte(`{"studentId":"S1","program":"CS","courses":[1,0]}`))
			So(firstIssue(err), ShouldEqual, "courses[1] must be a positive integer")
		})

		Convey("Empty, malformed and non-object bodies are rejected", func() {
			_, err := StudentCreate(nil)
			So(firstIssue(err), ShouldEqual, "request body is empty")
			_, err = StudentCreate([]byte(`{"studentId":`))
			So(firstIssue(err), ShouldEqual, "request body is not valid JSON")
			_, err = StudentCreate([]byte(`[1,2]`))
			So(firstIssue(err), ShouldEqual, "request body must be a JSON object")
		})
	})

	Convey("Given a student update body", t, func() {
		Convey("Only the id is required", func() {
			p, err := StudentUpdate([]byte(`{"studentId":"S1"}`))
			So(err, ShouldBeNil)
			So(p.StudentID, ShouldEqual, types.StudentID("S1"))
			So(p.Program, ShouldBeNil)
			So(p.Courses, ShouldBeNil)
		})

		Convey("Supplied fields are carried in the patch", func() {
			p, err := StudentUpdate([]byte(`{"studentId":"S1","courses":[]}`))
			So(err, ShouldBeNil)
			So(p.Courses, ShouldNotBeNil)
			So(*p.Courses, ShouldBeEmpty)
		})

		Convey("An empty program is rejected", func() {
			_, err := StudentUpdate([]byte(`{"studentId":"S1","program":""}`))
			So(firstIssue(err), ShouldEqual, "program must not be empty")
		})

		Convey("A missing id is rejected", func() {
			_, err := StudentUpdate([]byte(`{"program":"CS"}`))
			So(firstIssue(err), ShouldEqual, "studentId is required")
		})
	})

	Convey("Given a student delete body", t, func() {
		id, err := StudentDelete([]byte(`{"studentId":"missing"}`))
		So(err, ShouldBeNil)
		So(id, ShouldEqual, types.StudentID("missing"))

		_, err = StudentDelete([]byte(`{"studentId":true}`))
		So(firstIssue(err), ShouldEqual, "studentId must be a string")
	})
}

func TestCourseBodies(t *testing.T) {
	Convey("Given a course create body", t, func() {
		Convey("Instructors are optional", func() {
			c, err := CourseCreate([]byte(`{"courseId":101,"courseTitle":"Algorithms"}`))
			So(err, ShouldBeNil)
			So(c, ShouldResemble, types.Course{CourseID: 101, CourseTitle: "Algorithms"})
		})

		Convey("A fractional id is not an integer", func() {
			_, err := CourseCreate([]byte(`{"courseId":1.5,"courseTitle":"X"}`))
			So(firstIssue(err), ShouldEqual, "courseId must be an integer")
		})

		Convey("A string id is not an integer", func() {
			_, err := CourseCreate([]byte(`{"courseId":"101","courseTitle":"X"}`))
			So(firstIssue(err), ShouldEqual, "courseId must be an integer")
		})

		Convey("A missing title is reported", func() {
			_, err := CourseCreate([]byte(`{"courseId":101}`))
			So(firstIssue(err), ShouldEqual, "courseTitle is required")
		})

		Convey("Blank instructor names are rejected", func() {
			_, err := CourseCreate([]byte(`{"courseId":101,"courseTitle":"X","instructors":["A",""]}`))
			So(firstIssue(err), ShouldEqual, "instructors[1] is required")
		})
	})

	Convey("Given a course update body", t, func() {
		p, err := CourseUpdate([]byte(`{"courseId":101,"courseTitle":"Advanced Algorithms"}`))
		So(err, ShouldBeNil)
		So(p.CourseID, ShouldEqual, 101)
		So(*p.CourseTitle, ShouldEqual, "Advanced Algorithms")
		So(p.Instructors, ShouldBeNil)

		_, err = CourseUpdate([]byte(`{"courseTitle":"X"}`))
		So(firstIssue(err), ShouldEqual, "courseId is required")
	})

	Convey("Given a course delete body", t, func() {
		id, err := CourseDelete([]byte(`{"courseId":101}`))
		So(err, ShouldBeNil)
		So(id, ShouldEqual, 101)

		_, err = CourseDelete([]byte(`{"courseId":-1}`))
		So(firstIssue(err), ShouldEqual, "courseId must be a positive integer")
	})
}

func TestExtraFields(t *testing.T) {
	Convey("Fields outside the model are handed back as sent", t, func() {
		s, err := StudentCreate([]byte(`{"studentId":"S1","program":"CS","courses":[],"nickname":"Ton","PROGRAM":"CS"}`))
		So(err, ShouldBeNil)
		So(s.Extra, ShouldResemble, types.Extra{"nickname": json.RawMessage(`"Ton"`)})

		p, err := StudentUpdate([]byte(`{"studentId":"S1","year":3}`))
		So(err, ShouldBeNil)
		So(p.Extra, ShouldResemble, types.Extra{"year": json.RawMessage(`3`)})

		c, err := CourseCreate([]byte(`{"courseId":1,"courseTitle":"One","credits":3}`))
		So(err, ShouldBeNil)
		So(c.Extra, ShouldResemble, types.Extra{"credits": json.RawMessage(`3`)})

		cp, err := CourseUpdate([]byte(`{"courseId":1}`))
		So(err, ShouldBeNil)
		So(cp.Extra, ShouldBeNil)
	})
}
