// Package storagetest is a conformance suite every storage.Storage backend
// runs from its own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/types"

	. "github.com/smartystreets/goconvey/convey"
)

// Run exercises st against the storage contract. newStore must return a
// fresh, empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		st := newStore(t)
		Reset(func() { _ = st.Close() })

		Convey("Lists are empty but not nil", func() {
			students, err := st.ListStudents(ctx)
			So(err, ShouldBeNil)
			So(students, ShouldNotBeNil)
			So(students, ShouldBeEmpty)

			courses, err := st.ListCourses(ctx)
			So(err, ShouldBeNil)
			So(courses, ShouldNotBeNil)
			So(courses, ShouldBeEmpty)
		})

		Convey("Lookups report ErrNotFound", func() {
			_, err := st.FindStudent(ctx, "nobody")
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			_, err = st.FindCourse(ctx, 1)
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			So(errors.Is(st.RemoveStudent(ctx, "nobody"), storage.ErrNotFound), ShouldBeTrue)
			_, err = st.RemoveCourse(ctx, 1)
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			_, err = st.UpdateStudent(ctx, types.StudentPatch{StudentID: "nobody"})
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			_, err = st.UpdateCourse(ctx, types.CoursePatch{CourseID: 1})
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
		})

		Convey("When students are inserted", func() {
			a := types.Student{StudentID: "A", Program: "CPE", Courses: []int{1, 2}}
			b := types.Student{StudentID: "B", Program: "ISNE", Courses: []int{}}
			c := types.Student{StudentID: "C", Program: "CPE", Courses: []int{3}}
			for _, s := range []types.Student{a, b, c} {
				So(st.InsertStudent(ctx, s), ShouldBeNil)
			}

			Convey("They are listed in insertion order", func() {
				got, err := st.ListStudents(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []types.Student{a, b, c})
			})

			Convey("Find returns the exact record", func() {
				got, err := st.FindStudent(ctx, "B")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, b)
			})

			Convey("A duplicate id is a conflict and the size is unchanged", func() {
				err := st.InsertStudent(ctx, types.Student{StudentID: "A", Program: "X", Courses: []int{}})
				So(errors.Is(err, storage.ErrConflict), ShouldBeTrue)
				got, _ := st.ListStudents(ctx)
				So(got, ShouldHaveLength, 3)
				So(got[0], ShouldResemble, a)
			})

			Convey("Update merges and keeps the position", func() {
				program := "MMIT"
				got, err := st.UpdateStudent(ctx, types.StudentPatch{StudentID: "A", Program: &program})
				So(err, ShouldBeNil)
				So(got, ShouldResemble, types.Student{StudentID: "A", Program: "MMIT", Courses: []int{1, 2}})

				all, _ := st.ListStudents(ctx)
				So(all[0], ShouldResemble, got)
			})

			Convey("Remove deletes exactly one entry", func() {
				So(st.RemoveStudent(ctx, "B"), ShouldBeNil)
				got, _ := st.ListStudents(ctx)
				So(got, ShouldResemble, []types.Student{a, c})
				_, err := st.FindStudent(ctx, "B")
				So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			})

			Convey("Returned records do not alias stored ones", func() {
				got, _ := st.FindStudent(ctx, "A")
				got.Courses[0] = 42
				again, _ := st.FindStudent(ctx, "A")
				So(again.Courses, ShouldResemble, []int{1, 2})
			})
		})

		Convey("When courses are inserted", func() {
			x := types.Course{CourseID: 10, CourseTitle: "X", Instructors: []string{"I"}}
			y := types.Course{CourseID: 20, CourseTitle: "Y"}
			So(st.InsertCourse(ctx, x), ShouldBeNil)
			So(st.InsertCourse(ctx, y), ShouldBeNil)

			Convey("A duplicate id is a conflict", func() {
				So(errors.Is(st.InsertCourse(ctx, types.Course{CourseID: 10}), storage.ErrConflict), ShouldBeTrue)
			})

			Convey("Update merges", func() {
				title := "X2"
				got, err := st.UpdateCourse(ctx, types.CoursePatch{CourseID: 10, CourseTitle: &title})
				So(err, ShouldBeNil)
				So(got, ShouldResemble, types.Course{CourseID: 10, CourseTitle: "X2", Instructors: []string{"I"}})
			})

			Convey("Remove returns the remaining collection", func() {
				rest, err := st.RemoveCourse(ctx, 10)
				So(err, ShouldBeNil)
				So(rest, ShouldResemble, []types.Course{y})

				rest, err = st.RemoveCourse(ctx, 20)
				So(err, ShouldBeNil)
				So(rest, ShouldNotBeNil)
				So(rest, ShouldBeEmpty)
			})
		})

		Convey("Extra fields survive a round trip and merge on update", func() {
			s := types.Student{
				StudentID: "S1",
				Program:   "CS",
				Courses:   []int{},
				Extra:     types.Extra{"nickname": json.RawMessage(`"Ton"`)},
			}
			So(st.InsertStudent(ctx, s), ShouldBeNil)
			got, err := st.FindStudent(ctx, "S1")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, s)

			merged, err := st.UpdateStudent(ctx, types.StudentPatch{
				StudentID: "S1",
				Extra:     types.Extra{"year": json.RawMessage(`3`)},
			})
			So(err, ShouldBeNil)
			So(merged.Extra, ShouldHaveLength, 2)
			got, _ = st.FindStudent(ctx, "S1")
			So(got, ShouldResemble, merged)

			c := types.Course{CourseID: 1, CourseTitle: "One", Extra: types.Extra{"credits": json.RawMessage(`3`)}}
			So(st.InsertCourse(ctx, c), ShouldBeNil)
			gotCourse, err := st.FindCourse(ctx, 1)
			So(err, ShouldBeNil)
			So(gotCourse, ShouldResemble, c)
		})

		Convey("Seed populates both collections once", func() {
			seeded, err := storage.Seed(ctx, st)
			So(err, ShouldBeNil)
			So(seeded, ShouldBeTrue)
			students, _ := st.ListStudents(ctx)
			So(students, ShouldResemble, storage.SeedStudents())
			courses, _ := st.ListCourses(ctx)
			So(courses, ShouldResemble, storage.SeedCourses())

			seeded, err = storage.Seed(ctx, st)
			So(err, ShouldBeNil)
			So(seeded, ShouldBeFalse)
			students, _ = st.ListStudents(ctx)
			So(students, ShouldHaveLength, len(storage.SeedStudents()))
		})

		Convey("Seed leaves a populated collection alone", func() {
			So(st.InsertStudent(ctx, types.Student{StudentID: "mine", Program: "CS", Courses: []int{}}), ShouldBeNil)
			seeded, err := storage.Seed(ctx, st)
			So(err, ShouldBeNil)
			So(seeded, ShouldBeTrue)

			students, _ := st.ListStudents(ctx)
			So(students, ShouldHaveLength, 1)
			courses, _ := st.ListCourses(ctx)
			So(courses, ShouldResemble, storage.SeedCourses())
		})

		Convey("Concurrent inserts of one id admit exactly one winner", func() {
			const n = 16
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = st.InsertStudent(ctx, types.Student{
						StudentID: "same",
						Program:   fmt.Sprintf("P%d", i),
						Courses:   []int{},
					})
				}()
			}
			wg.Wait()

			ok := 0
			for _, err := range errs {
				if err == nil {
					ok++
				} else {
					So(errors.Is(err, storage.ErrConflict), ShouldBeTrue)
				}
			}
			So(ok, ShouldEqual, 1)
			got, _ := st.ListStudents(ctx)
			So(got, ShouldHaveLength, 1)
		})
	})
}
