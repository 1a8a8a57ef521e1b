package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/aanand-mishra/enrollment-api/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSetupLogger(t *testing.T) {
	Convey("The log format follows the environment", t, func() {
		var buf bytes.Buffer

		setupLogger("prod", &buf).Debug("hidden")
		So(buf.Len(), ShouldEqual, 0)
		setupLogger("prod", &buf).Info("shown")
		So(buf.String(), ShouldStartWith, "{")

		buf.Reset()
		setupLogger("staging", &buf).Debug("shown")
		So(buf.String(), ShouldContainSubstring, `"level":"DEBUG"`)

		buf.Reset()
		setupLogger("dev", &buf).Debug("shown", slog.String("k", "v"))
		So(buf.String(), ShouldContainSubstring, "level=DEBUG")
		So(buf.String(), ShouldContainSubstring, "k=v")
	})
}

func TestOpenStorage(t *testing.T) {
	Convey("Drivers select the store", t, func() {
		for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
			st, err := openStorage(config.Storage{Driver: driver, Path: ":memory:"})
			So(err, ShouldBeNil)
			students, err := st.ListStudents(context.Background())
			So(err, ShouldBeNil)
			So(students, ShouldBeEmpty)
			So(st.Close(), ShouldBeNil)
		}

		_, err := openStorage(config.Storage{Driver: "postgres"})
		So(err, ShouldNotBeNil)
	})
}

func TestRoutesCommand(t *testing.T) {
	Convey("The routes command prints every API route", t, func() {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"routes"})
		So(cmd.Execute(), ShouldBeNil)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		So(lines, ShouldHaveLength, 13)
		So(lines[0], ShouldStartWith, "ROUTE")
		So(out.String(), ShouldContainSubstring, "DELETE /api/v2/courses")
		So(out.String(), ShouldContainSubstring, "validation=400(error) not_found=404 unexpected=200")
	})
}

func TestNewMetrics(t *testing.T) {
	Convey("The metrics manager follows the config", t, func() {
		m := newMetrics(config.Metrics{Namespace: "school", LatencyBuckets: []float64{1, 2}})
		m.ObserveRequest("me", "GET", 200, 0)

		families, err := m.Registry().Gather()
		So(err, ShouldBeNil)
		names := make([]string, 0, len(families))
		for _, f := range families {
			names = append(names, f.GetName())
		}
		So(names, ShouldContain, "school_api_http_requests_total")
		So(names, ShouldContain, "go_goroutines")
	})
}
