package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "todoapi")
				So(manager.subsystem, ShouldEqual, "server")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithConstLabels(map[string]string{"instance": "a"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["instance"], ShouldEqual, "a")
			})

			Convey("And gauges should be gathered with the constant labels", func() {
				manager.itemsTotal.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, mf := range families {
					if mf.GetName() == "test-namespace_test-subsystem_todo_items" {
						found = true
						So(mf.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 3)
						So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "a")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty values are passed to options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "todoapi")
				So(manager.subsystem, ShouldEqual, "server")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.constLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording todo mutations", func() {
			before, _ := Sum("todoapi_server_todo_mutations_total", map[string]string{"operation": "create"})
			RecordTodoMutation("create")
			RecordTodoMutation("create")
			RecordTodoMutation("delete")

			Convey("Then the create counter should grow by two", func() {
				after, err := Sum("todoapi_server_todo_mutations_total", map[string]string{"operation": "create"})
				So(err, ShouldBeNil)
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When updating the item gauge", func() {
			UpdateItemsTotal(7)

			Convey("Then the gauge should hold the latest value", func() {
				v, err := Sum("todoapi_server_todo_items", nil)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 7)
			})
		})

		Convey("When recording repository operations", func() {
			RecordRepositoryOperation("memory", "find", "not_found", 0.2)

			Convey("Then the operation counter should be labelled by result", func() {
				v, err := Sum("todoapi_server_repository_operations_total",
					map[string]string{"backend": "memory", "operation": "find", "result": "not_found"})
				So(err, ShouldBeNil)
				So(v, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				IncHTTPInFlight()
				RecordHTTPRequest("todo_item", "GET", "404")
				RecordHTTPRequestDuration("todo_item", "GET", "404", 1.5)
				RecordErrorByEndpoint("todo_item", "GET", "not_found")
				RecordErrorByType("not_found", "medium")
				DecHTTPInFlight()
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024 * 100)
				UpdateSystemGoroutineCount(42)
				RecordSystemGCPauseTime(1.0)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsSum(t *testing.T) {
	Convey("Given the Sum helper", t, func() {
		Convey("When asking for a metric that does not exist", func() {
			_, err := Sum("todoapi_server_nope", nil)

			Convey("Then it should report an unknown metric", func() {
				So(errors.Is(err, ErrUnknownMetric), ShouldBeTrue)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given metrics are disabled", t, func() {
		prev := globalManager
		globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		defer func() { globalManager = prev }()

		Convey("When recording values", func() {
			UpdateItemsTotal(100)

			Convey("Then nothing is observed", func() {
				So(globalManager.enabled, ShouldBeFalse)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordTodoMutation("update")
					UpdateItemsTotal(j)
					RecordHTTPRequest("todo_list", "GET", "200")
				}
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then concurrent recording should not panic", func() {
			So(true, ShouldBeTrue)
		})
	})
}
