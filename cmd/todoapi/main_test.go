package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/todoapi/internal/app"
	"github.com/okian/todoapi/internal/config"
	"github.com/okian/todoapi/pkg/logger"
	"github.com/okian/todoapi/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// startRun runs the server on a loopback port and waits for /healthz.
func startRun(cfg *config.Config) (base string, cancel context.CancelFunc, done <-chan error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	convey.So(err, convey.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg, ln) }()

	base = "http://" + ln.Addr().String()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return base, cancel, errCh
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then it should expose serve and version", func() {
			names := []string{}
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "version")
			convey.So(root.PersistentFlags().Lookup("config"), convey.ShouldNotBeNil)
		})

		convey.Convey("When running version", func() {
			original := version
			version = "test-version-1.0.0"
			defer func() { version = original }()

			buf := new(bytes.Buffer)
			root.SetOut(buf)
			root.SetArgs([]string{"version"})
			err := root.Execute()

			convey.Convey("Then it prints the version", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(buf.String(), convey.ShouldContainSubstring, "todoapi version test-version-1.0.0")
			})
		})

		convey.Convey("When serving with a missing config file", func() {
			buf := new(bytes.Buffer)
			root.SetOut(buf)
			root.SetErr(buf)
			root.SetArgs([]string{"serve", "--config", "/non/existent/todoapi.yaml"})
			err := root.Execute()

			convey.Convey("Then it fails with a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a server running on the memory store", t, func() {
		cfg := config.New(context.Background())
		base, cancel, done := startRun(cfg)
		defer cancel()

		convey.Convey("When an item is created over HTTP", func() {
			resp, err := http.Post(base+"/api/todo", "application/json",
				strings.NewReader(`{"key":1,"name":"Item1","isComplete":false}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then it is created and the docs are served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
				convey.So(resp.Header.Get("Location"), convey.ShouldEqual, "/api/todo/1")

				docs, err := http.Get(base + "/openapi.yaml")
				convey.So(err, convey.ShouldBeNil)
				_ = docs.Body.Close()
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("And cancelling shuts the server down cleanly", func() {
				cancel()
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					convey.So("shutdown timed out", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given a server running on the sqlite store", t, func() {
		cfg := config.New(context.Background())
		cfg.Store = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "todo.db")
		base, cancel, done := startRun(cfg)

		convey.Convey("When an item is stored and the server restarted", func() {
			resp, err := http.Post(base+"/api/todo", "application/json", strings.NewReader(`{"key":9,"name":"kept"}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			cancel()
			convey.So(<-done, convey.ShouldBeNil)

			base, cancel, _ = startRun(cfg)
			defer cancel()

			convey.Convey("Then the item is still there", func() {
				got, err := http.Get(fmt.Sprintf("%s/api/todo/%d", base, 9))
				convey.So(err, convey.ShouldBeNil)
				_ = got.Body.Close()
				convey.So(got.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})
	})

	convey.Convey("Given an unsupported store kind", t, func() {
		cfg := config.New(context.Background())
		cfg.Store = "etcd"
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then run fails before serving", func() {
			convey.So(run(context.Background(), cfg, ln), convey.ShouldNotBeNil)
		})
	})
}

func TestApplyLogging(t *testing.T) {
	convey.Convey("Given a config asking for debug json logs", t, func() {
		cfg := config.New(context.Background())
		cfg.LogFormat = config.LogFormatJSON
		cfg.LogLevel = "debug"
		defer func() { _ = logger.Init() }()

		convey.Convey("Then the global logger is switched", func() {
			convey.So(applyLogging(cfg), convey.ShouldBeNil)
			convey.So(logger.Level().String(), convey.ShouldEqual, "DEBUG")
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("When updating system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			svc := app.New()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When updating service metrics from a started service", func() {
			svc := app.New()
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()
			metrics.UpdateItemsTotal(42)

			updateServiceMetrics(svc)

			convey.Convey("Then the item gauge follows the store", func() {
				v, err := metrics.Sum("todoapi_server_todo_items", nil)
				convey.So(err, convey.ShouldBeNil)
				convey.So(v, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestLoadTestCommand(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		base, cancel, _ := startRun(config.New(context.Background()))
		defer cancel()

		convey.Convey("When the loadtest command targets it", func() {
			root := newRootCmd()
			buf := new(bytes.Buffer)
			root.SetOut(buf)
			root.SetArgs([]string{"loadtest", "--url", base, "--items", "20", "--workers", "2"})
			err := root.Execute()

			convey.Convey("Then it reports a clean run", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(buf.String(), convey.ShouldContainSubstring, "created=20 updated=10 deleted=20 failed=0")
			})
		})
	})
}
