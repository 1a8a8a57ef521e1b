package storage

import (
	"context"
	"fmt"

	"github.com/aanand-mishra/enrollment-api/internal/types"
)

// SeedStudents is the student collection a fresh process starts with.
func SeedStudents() []types.Student {
	return []types.Student{
		{StudentID: "650610001", Program: "CPE", Courses: []int{261207, 261497}},
		{StudentID: "650610002", Program: "ISNE", Courses: []int{269101}},
		{StudentID: "650612034", Program: "CPE", Courses: []int{261207}},
	}
}

// SeedCourses is the course collection a fresh process starts with.
func SeedCourses() []types.Course {
	return []types.Course{
		{CourseID: 261207, CourseTitle: "Basic Computer Engineering Lab", Instructors: []string{"Dome Potikanond"}},
		{CourseID: 261497, CourseTitle: "Full Stack Development", Instructors: []string{"Dome Potikanond", "Chinawat Isradisaikul"}},
		{CourseID: 269101, CourseTitle: "Introduction to Information Systems and Network Engineering"},
	}
}

// Seed loads the seed collections into st. A collection that already holds
// records is left alone, so restarting on a persistent store is harmless.
// It reports whether anything was inserted.
func Seed(ctx context.Context, st Storage) (bool, error) {
	seeded := false

	courses, err := st.ListCourses(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: list courses: %w", err)
	}
	if len(courses) == 0 {
		for _, c := range SeedCourses() {
			if err := st.InsertCourse(ctx, c); err != nil {
				return seeded, fmt.Errorf("seed course %d: %w", c.CourseID, err)
			}
			seeded = true
		}
	}

	students, err := st.ListStudents(ctx)
	if err != nil {
		return seeded, fmt.Errorf("seed: list students: %w", err)
	}
	if len(students) == 0 {
		for _, s := range SeedStudents() {
			if err := st.InsertStudent(ctx, s); err != nil {
				return seeded, fmt.Errorf("seed student %s: %w", s.StudentID, err)
			}
			seeded = true
		}
	}
	return seeded, nil
}
