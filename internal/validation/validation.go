// Package validation turns raw path parameters and request bodies into typed
// values, or into a list of human-readable issues.
//
// Validators never panic and never touch a store. Every failure is returned
// as a *Error; handlers show only Error.First to the client.
//
// Rules are expressed as go-playground/validator struct tags on small body
// types private to this package. Fields outside the model are not validated;
// create and update bodies hand them back as types.Extra.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/aanand-mishra/enrollment-api/internal/types"
	"github.com/go-playground/validator/v10"
)

// Error carries every issue found in one input, in field order.
type Error struct {
	Issues []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

// First returns the first issue, which is all a client is shown.
func (e *Error) First() string {
	if len(e.Issues) == 0 {
		return ""
	}
	return e.Issues[0]
}

func fail(issues ...string) *Error {
	return &Error{Issues: issues}
}

const (
	studentIDRule = "required,max=64,printascii"
	courseIDRule  = "required,gt=0"
)

var validate = newValidator()

// newValidator reports fields by their JSON names, so that messages match
// what the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Identifiers (path parameters)
// ─────────────────────────────────────────────────────────────────────────────

// StudentID validates a student id taken from the URL.
func StudentID(raw string) (types.StudentID, error) {
	if err := validate.Var(raw, studentIDRule); err != nil {
		return "", fromValidator(err, "studentId")
	}
	return types.StudentID(raw), nil
}

// CourseID parses a course id taken from the URL. It must be a positive
// integer.
func CourseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fail("courseId must be a number")
	}
	if err := validate.Var(id, courseIDRule); err != nil {
		return 0, fromValidator(err, "courseId")
	}
	return id, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Student bodies
// ─────────────────────────────────────────────────────────────────────────────

var studentFields = []string{"studentId", "program", "courses"}

type studentCreateBody struct {
	StudentID types.StudentID `json:"studentId" validate:"required,max=64,printascii"`
	Program   string          `json:"program"   validate:"required"`
	Courses   []int           `json:"courses"   validate:"required,dive,gt=0"`
}

type studentUpdateBody struct {
	StudentID types.StudentID `json:"studentId" validate:"required,max=64,printascii"`
	Program   *string         `json:"program"   validate:"omitempty,min=1"`
	Courses   *[]int          `json:"courses"   validate:"omitempty,dive,gt=0"`
}

type studentKeyBody struct {
	StudentID types.StudentID `json:"studentId" validate:"required,max=64,printascii"`
}

// StudentCreate validates a full student for POST /students.
func StudentCreate(body []byte) (types.Student, error) {
	var b studentCreateBody
	if err := parse(body, &b); err != nil {
		return types.Student{}, err
	}
	return types.Student{
		StudentID: b.StudentID,
		Program:   b.Program,
		Courses:   b.Courses,
		Extra:     extras(body, studentFields...),
	}, nil
}

// StudentUpdate validates a partial student for PUT /students.
func StudentUpdate(body []byte) (types.StudentPatch, error) {
	var b studentUpdateBody
	if err := parse(body, &b); err != nil {
		return types.StudentPatch{}, err
	}
	return types.StudentPatch{
		StudentID: b.StudentID,
		Program:   b.Program,
		Courses:   b.Courses,
		Extra:     extras(body, studentFields...),
	}, nil
}

// StudentDelete validates the body of DELETE /students.
func StudentDelete(body []byte) (types.StudentID, error) {
	var b studentKeyBody
	if err := parse(body, &b); err != nil {
		return "", err
	}
	return b.StudentID, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Course bodies
// ─────────────────────────────────────────────────────────────────────────────

var courseFields = []string{"courseId", "courseTitle", "instructors"}

type courseCreateBody struct {
	CourseID    int      `json:"courseId"    validate:"required,gt=0"`
	CourseTitle string   `json:"courseTitle" validate:"required"`
	Instructors []string `json:"instructors" validate:"omitempty,dive,required"`
}

type courseUpdateBody struct {
	CourseID    int       `json:"courseId"    validate:"required,gt=0"`
	CourseTitle *string   `json:"courseTitle" validate:"omitempty,min=1"`
	Instructors *[]string `json:"instructors" validate:"omitempty,dive,required"`
}

type courseKeyBody struct {
	CourseID int `json:"courseId" validate:"required,gt=0"`
}

// CourseCreate validates a full course for POST /courses.
func CourseCreate(body []byte) (types.Course, error) {
	var b courseCreateBody
	if err := parse(body, &b); err != nil {
		return types.Course{}, err
	}
	return types.Course{
		CourseID:    b.CourseID,
		CourseTitle: b.CourseTitle,
		Instructors: b.Instructors,
		Extra:       extras(body, courseFields...),
	}, nil
}

// CourseUpdate validates a partial course for PUT /courses.
func CourseUpdate(body []byte) (types.CoursePatch, error) {
	var b courseUpdateBody
	if err := parse(body, &b); err != nil {
		return types.CoursePatch{}, err
	}
	return types.CoursePatch{
		CourseID:    b.CourseID,
		CourseTitle: b.CourseTitle,
		Instructors: b.Instructors,
		Extra:       extras(body, courseFields...),
	}, nil
}

// CourseDelete validates the body of DELETE /courses.
func CourseDelete(body []byte) (int, error) {
	var b courseKeyBody
	if err := parse(body, &b); err != nil {
		return 0, err
	}
	return b.CourseID, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Decoding and message formatting
// ─────────────────────────────────────────────────────────────────────────────

// parse decodes body into dst and runs the struct rules.
func parse(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fail("request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fromDecode(err)
	}
	if err := validate.Struct(dst); err != nil {
		return fromValidator(err, "")
	}
	return nil
}

// extras returns the top-level fields of an already parsed body that the
// model does not name. Matching is case-insensitive, as in encoding/json.
func extras(body []byte, known ...string) types.Extra {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(body, &all); err != nil {
		return nil
	}
	for key := range all {
		if slices.ContainsFunc(known, func(k string) bool { return strings.EqualFold(k, key) }) {
			delete(all, key)
		}
	}
	if len(all) == 0 {
		return nil
	}
	return types.Extra(all)
}

func fromDecode(err error) *Error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return fail("request body is not valid JSON")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return fail("request body must be a JSON object")
		}
		return fail(fmt.Sprintf("%s must be %s", typeErr.Field, describe(typeErr.Type)))
	default:
		return fail(err.Error())
	}
}

// describe names the JSON shape a Go type expects.
func describe(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "an object"
	}
}

// fromValidator converts validator errors into one sentence per failing
// field. name overrides the field name, for validate.Var on bare values.
func fromValidator(err error, name string) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(err.Error())
	}

	issues := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		if name != "" {
			field = name
		}

		switch e.ActualTag() {
		case "required":
			issues = append(issues, fmt.Sprintf("%s is required", field))
		case "gt":
			issues = append(issues, fmt.Sprintf("%s must be a positive integer", field))
		case "min":
			issues = append(issues, fmt.Sprintf("%s must not be empty", field))
		case "max":
			issues = append(issues, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		case "printascii":
			issues = append(issues, fmt.Sprintf("%s must contain printable ASCII characters only", field))
		default:
			issues = append(issues, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fail(issues...)
}
