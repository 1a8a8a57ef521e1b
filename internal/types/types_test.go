package types

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStudentIDUnmarshal(t *testing.T) {
	Convey("Given JSON bodies with different studentId encodings", t, func() {
		Convey("A string id is kept verbatim", func() {
			var s Student
			So(json.Unmarshal([]byte(`{"studentId":"S1"}`), &s), ShouldBeNil)
			So(s.StudentID, ShouldEqual, StudentID("S1"))
		})

		Convey("A numeric id is held as its text form", func() {
			var s Student
			So(json.Unmarshal([]byte(`{"studentId":650610001}`), &s), ShouldBeNil)
			So(s.StudentID, ShouldEqual, StudentID("650610001"))
		})

		Convey("Equal numbers in different notations give the same id", func() {
			for _, raw := range []string{"100", "1e2", "100.0", "1.00E+2"} {
				var s Student
				So(json.Unmarshal([]byte(`{"studentId":`+raw+`}`), &s), ShouldBeNil)
				So(s.StudentID, ShouldEqual, StudentID("100"))
			}
		})

		Convey("Fractions and imprecise numbers are type errors", func() {
			for _, raw := range []string{"1.5", "1e300", "9007199254740993"} {
				var s Student
				err := json.Unmarshal([]byte(`{"studentId":`+raw+`}`), &s)
				typeErr, ok := err.(*json.UnmarshalTypeError)
				So(ok, ShouldBeTrue)
				So(typeErr.Field, ShouldEqual, "studentId")
			}
		})

		Convey("null leaves the id empty", func() {
			var s Student
			So(json.Unmarshal([]byte(`{"studentId":null}`), &s), ShouldBeNil)
			So(s.StudentID, ShouldEqual, StudentID(""))
		})

		Convey("A boolean is a type error naming the field", func() {
			var s Student
			err := json.Unmarshal([]byte(`{"studentId":true}`), &s)
			So(err, ShouldNotBeNil)
			typeErr, ok := err.(*json.UnmarshalTypeError)
			So(ok, ShouldBeTrue)
			So(typeErr.Field, ShouldEqual, "studentId")
			So(typeErr.Value, ShouldEqual, "bool")
		})
	})
}

func TestStudentPatchApply(t *testing.T) {
	Convey("Given a stored student", t, func() {
		stored := Student{StudentID: "S1", Program: "CPE", Courses: []int{1, 2}}

		Convey("Omitted fields keep their previous values", func() {
			got := StudentPatch{StudentID: "S1"}.Apply(stored)
			So(got, ShouldResemble, stored)
		})

		Convey("Present fields overwrite", func() {
			program := "ISNE"
			courses := []int{9}
			got := StudentPatch{StudentID: "S1", Program: &program, Courses: &courses}.Apply(stored)
			So(got.Program, ShouldEqual, "ISNE")
			So(got.Courses, ShouldResemble, []int{9})
		})

		Convey("An explicit empty course list clears enrollment", func() {
			empty := []int{}
			got := StudentPatch{StudentID: "S1", Courses: &empty}.Apply(stored)
			So(got.Courses, ShouldNotBeNil)
			So(got.Courses, ShouldBeEmpty)
		})

		Convey("The input record is not modified", func() {
			courses := []int{7}
			got := StudentPatch{StudentID: "S1", Courses: &courses}.Apply(stored)
			got.Courses[0] = 99
			So(stored.Courses, ShouldResemble, []int{1, 2})
			So(courses, ShouldResemble, []int{7})
		})
	})
}

func TestCoursePatchApply(t *testing.T) {
	Convey("Given a stored course", t, func() {
		stored := Course{CourseID: 261207, CourseTitle: "Basic Computer Engineering Lab", Instructors: []string{"Dome"}}

		Convey("Updating only the title keeps instructors", func() {
			title := "Lab"
			got := CoursePatch{CourseID: 261207, CourseTitle: &title}.Apply(stored)
			So(got.CourseTitle, ShouldEqual, "Lab")
			So(got.Instructors, ShouldResemble, []string{"Dome"})
		})

		Convey("Updating instructors keeps the title", func() {
			ins := []string{"Chinawat"}
			got := CoursePatch{CourseID: 261207, Instructors: &ins}.Apply(stored)
			So(got.CourseTitle, ShouldEqual, stored.CourseTitle)
			So(got.Instructors, ShouldResemble, []string{"Chinawat"})
		})
	})
}

func TestEnrollment(t *testing.T) {
	Convey("Given a catalog and a student", t, func() {
		catalog := []Course{
			{CourseID: 101, CourseTitle: "Algorithms"},
			{CourseID: 102, CourseTitle: "Networks"},
		}

		Convey("Known ids resolve in enrollment order", func() {
			got := Enrollment(Student{StudentID: "S1", Courses: []int{102, 101}}, catalog)
			So(got.StudentID, ShouldEqual, StudentID("S1"))
			So(got.Courses, ShouldHaveLength, 2)
			So(*got.Courses[0].CourseID, ShouldEqual, 102)
			So(*got.Courses[0].CourseTitle, ShouldEqual, "Networks")
			So(*got.Courses[1].CourseTitle, ShouldEqual, "Algorithms")
		})

		Convey("A dangling id yields an empty entry instead of being dropped", func() {
			got := Enrollment(Student{StudentID: "S1", Courses: []int{999, 101}}, catalog)
			So(got.Courses, ShouldHaveLength, 2)
			So(got.Courses[0].CourseID, ShouldBeNil)
			So(got.Courses[0].CourseTitle, ShouldBeNil)

			raw, err := json.Marshal(got.Courses[0])
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{}`)
		})

		Convey("No enrollment encodes as an empty list, not null", func() {
			raw, err := json.Marshal(Enrollment(Student{StudentID: "S2"}, catalog))
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"studentId":"S2","courses":[]}`)
		})
	})
}

func TestExtraFields(t *testing.T) {
	Convey("Given a student carrying fields outside the model", t, func() {
		s := Student{
			StudentID: "S1",
			Program:   "CS",
			Courses:   []int{},
			Extra:     Extra{"nickname": json.RawMessage(`"Ton"`), "year": json.RawMessage(`3`)},
		}

		Convey("They are written after the modelled fields in key order", func() {
			raw, err := json.Marshal(s)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"studentId":"S1","program":"CS","courses":[],"nickname":"Ton","year":3}`)
		})

		Convey("A record without them marshals as before", func() {
			raw, err := json.Marshal(Course{CourseID: 1, CourseTitle: "One"})
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"courseId":1,"courseTitle":"One"}`)
		})

		Convey("A patch overwrites sent keys and keeps the rest", func() {
			got := StudentPatch{StudentID: "S1", Extra: Extra{"year": json.RawMessage(`4`)}}.Apply(s)
			So(got.Extra, ShouldResemble, Extra{"nickname": json.RawMessage(`"Ton"`), "year": json.RawMessage(`4`)})
			So(s.Extra["year"], ShouldResemble, json.RawMessage(`3`))
		})

		Convey("Clone does not share the map", func() {
			c := s.Clone()
			c.Extra["nickname"] = json.RawMessage(`"Other"`)
			So(s.Extra["nickname"], ShouldResemble, json.RawMessage(`"Ton"`))
		})
	})
}
