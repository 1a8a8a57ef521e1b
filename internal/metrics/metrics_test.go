package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := NewManager(WithNamespace("test"), WithSubsystem("http"))

		Convey("Requests are counted per route, method and status", func() {
			m.ObserveRequest("students.get", http.MethodGet, 404, 2*time.Millisecond)
			m.ObserveRequest("students.get", http.MethodGet, 404, time.Millisecond)
			m.ObserveRequest("students.get", http.MethodGet, 200, time.Millisecond)

			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("students.get", "GET", "404")), ShouldEqual, 2)
			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("students.get", "GET", "200")), ShouldEqual, 1)
			So(testutil.CollectAndCount(m.httpRequestDuration), ShouldEqual, 2)
		})

		Convey("Collection sizes are read at scrape time", func() {
			size := 3.0
			So(m.RegisterCollectionSize("students", func() float64 { return size }), ShouldBeNil)
			size = 5

			expected := `
# HELP test_http_collection_size Number of records currently held in a collection
# TYPE test_http_collection_size gauge
test_http_collection_size{collection="students"} 5
`
			So(testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_http_collection_size"), ShouldBeNil)
		})

		Convey("Registering the same collection twice fails", func() {
			So(m.RegisterCollectionSize("courses", func() float64 { return 0 }), ShouldBeNil)
			err := m.RegisterCollectionSize("courses", func() float64 { return 0 })
			So(err, ShouldNotBeNil)
			_, dup := err.(prometheus.AlreadyRegisteredError)
			So(dup, ShouldBeTrue)
		})

		Convey("The handler serves the exposition format", func() {
			m.ObserveRequest("courses.list", http.MethodGet, 200, time.Millisecond)
			w := httptest.NewRecorder()
			m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `test_http_http_requests_total{method="GET",route="courses.list",status_code="200"} 1`)
		})
	})

	Convey("Custom buckets shape the latency histogram", t, func() {
		m := NewManager(WithHistogramBuckets([]float64{1, 10}))
		m.ObserveRequest("students.list", http.MethodGet, 200, 5*time.Millisecond)

		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body := w.Body.String()
		So(body, ShouldContainSubstring, `le="10"`)
		So(body, ShouldNotContainSubstring, `le="250"`)
	})

	Convey("Runtime collectors are opt-in", t, func() {
		m := NewManager(WithRuntimeCollectors())
		families, err := m.Registry().Gather()
		So(err, ShouldBeNil)

		found := false
		for _, f := range families {
			if strings.HasPrefix(f.GetName(), "go_") {
				found = true
			}
		}
		So(found, ShouldBeTrue)
	})
}
