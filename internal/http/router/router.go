// Package router wires the handlers to their URLs and status policies.
package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/enrollment-api/internal/http/handlers/course"
	"github.com/aanand-mishra/enrollment-api/internal/http/handlers/student"
	"github.com/aanand-mishra/enrollment-api/internal/http/middleware"
	"github.com/aanand-mishra/enrollment-api/internal/metrics"
	"github.com/aanand-mishra/enrollment-api/internal/storage"
	"github.com/aanand-mishra/enrollment-api/internal/utils/response"
	"github.com/rs/cors"
)

// Banner is the plain-text body of GET /.
const Banner = "API services for Student Data"

// Route is one entry of the API table.
type Route struct {
	Pattern string
	Name    string
	Policy  response.Policy
	Handler response.HandlerFunc
}

// Status policies. The read routes answer 400/404 but report unexpected
// failures with 200; the student write routes answer everything but
// creation with 200 and success:false.
var (
	listPolicy          = response.Policy{Unexpected: http.StatusInternalServerError}
	lookupPolicy        = response.Policy{Validation: http.StatusBadRequest, NotFound: http.StatusNotFound}
	createPolicy        = response.Policy{Validation: http.StatusBadRequest}
	lenientPolicy       = response.Policy{}
	lenientDeletePolicy = response.Policy{ValidationKey: response.KeyError}
	strictDeletePolicy  = response.Policy{
		Validation:    http.StatusBadRequest,
		NotFound:      http.StatusNotFound,
		ValidationKey: response.KeyError,
	}
)

// Routes returns the API table bound to st.
func Routes(st storage.Storage) []Route {
	return []Route{
		{"GET " + student.Path, "students.list", listPolicy, student.List(st)},
		{"GET " + student.Path + "/{id}", "students.get", lookupPolicy, student.GetByID(st)},
		{"GET " + student.Path + "/{id}/courses", "students.courses", lookupPolicy, student.Courses(st, st)},
		{"POST " + student.Path, "students.create", createPolicy, student.New(st)},
		{"PUT " + student.Path, "students.update", lenientPolicy, student.Update(st)},
		{"DELETE " + student.Path, "students.delete", lenientDeletePolicy, student.Delete(st)},

		{"GET " + course.Path, "courses.list", listPolicy, course.List(st)},
		{"GET " + course.Path + "/{id}", "courses.get", lookupPolicy, course.GetByID(st)},
		{"POST " + course.Path, "courses.create", lenientPolicy, course.New(st)},
		{"PUT " + course.Path, "courses.update", lookupPolicy, course.Update(st)},
		{"DELETE " + course.Path, "courses.delete", strictDeletePolicy, course.Delete(st)},

		{"GET /me", "me", listPolicy, student.Me(st)},
	}
}

// Options tune the outer handler chain.
type Options struct {
	Logger         *slog.Logger
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// New builds the complete HTTP handler: API routes, banner, health check
// and metrics, wrapped in request id, access log, CORS and body limit.
func New(st storage.Storage, m *metrics.Manager, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	for _, rt := range Routes(st) {
		mux.Handle(rt.Pattern, middleware.Metrics(m, rt.Name, response.Handle(rt.Policy, rt.Handler)))
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, Banner)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = response.WriteJSON(w, http.StatusOK, response.Envelope{Success: true, Message: "ok"})
	})
	mux.Handle("GET /metrics", m.Handler())

	registerSizes(st, m, opts.Logger)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{"Link", middleware.HeaderRequestID},
	})

	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.AccessLog(opts.Logger),
		c.Handler,
		middleware.BodyLimit(opts.MaxBodyBytes),
	)
}

// registerSizes exports the collection sizes as gauges. A store error at
// scrape time reports -1.
func registerSizes(st storage.Storage, m *metrics.Manager, log *slog.Logger) {
	sizes := map[string]func(context.Context) (int, error){
		"students": func(ctx context.Context) (int, error) {
			s, err := st.ListStudents(ctx)
			return len(s), err
		},
		"courses": func(ctx context.Context) (int, error) {
			c, err := st.ListCourses(ctx)
			return len(c), err
		},
	}
	for name, size := range sizes {
		err := m.RegisterCollectionSize(name, func() float64 {
			n, err := size(context.Background())
			if err != nil {
				return -1
			}
			return float64(n)
		})
		if err != nil {
			log.Warn("collection size gauge not registered",
				slog.String("collection", name), slog.String("error", err.Error()))
		}
	}
}

// Describe renders a route's policy for the routes command.
func Describe(p response.Policy) string {
	key := "errors"
	if p.ValidationKey == response.KeyError {
		key = "error"
	}
	return fmt.Sprintf("validation=%d(%s) not_found=%d unexpected=%d",
		p.Status(response.KindValidation), key,
		p.Status(response.KindNotFound),
		p.Status(response.KindUnexpected))
}
