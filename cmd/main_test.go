package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/almog/internal/app"
	"github.com/okian/almog/internal/config"
	"github.com/okian/almog/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithOptions(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func setenv(kv map[string]string) func() {
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	}
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a sqlite configuration from the environment", t, func() {
		defer setenv(map[string]string{
			"ALMOG_ADDR":             ":8080",
			"ALMOG_STORE_DRIVER":     "sqlite",
			"ALMOG_STORE_DSN":        ":memory:",
			"ALMOG_EXCLUDED_PLAYERS": "staff, physio",
			"ALMOG_NOTES_POLICY":     "concat",
		})()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
		convey.So(cfg.ExcludedPlayers, convey.ShouldResemble, []string{"staff", "physio"})

		convey.Convey("When the service starts and routes are registered", func() {
			svc := newService(cfg, logger.Nop())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc)

			post := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`[
				{"player_name":"Dan Levy","date":"2024-03-04","total_distance":5000,"notes":"a"},
				{"player_name":"Dan Levy","date":"2024-03-05","total_distance":5000,"notes":"b"},
				{"player_name":"Staff Physio","date":"2024-03-05","total_distance":100}
			]`))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, post)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			convey.Convey("Then configured defaults shape the weekly report", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/weekly", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"notes":"a; b"`)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"excluded":1`)
				convey.So(w.Body.String(), convey.ShouldNotContainSubstring, "Staff Physio")
			})

			convey.Convey("And the docs routes are served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("And stats report the configured driver", func() {
				stats := svc.GetStats()
				convey.So(stats["driver"], convey.ShouldEqual, app.DriverSQLite)
				convey.So(stats["notes_policy"], convey.ShouldEqual, "concat")
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the listen address is empty", func() {
			defer setenv(map[string]string{"ALMOG_ADDR": ""})()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When postgres is selected without a reachable server", func() {
			cfg := config.New()
			cfg.StoreDriver = config.DriverPostgres
			cfg.StoreDSN = "postgres://almog@127.0.0.1:1/almog?sslmode=disable&connect_timeout=1"
			svc := newService(cfg, logger.Nop())

			convey.Convey("Then the service refuses to start", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				convey.So(svc.Start(ctx), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it returns once the context is done", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}
