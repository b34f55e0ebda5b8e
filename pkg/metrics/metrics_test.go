package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register its collectors there", func() {
				So(manager, ShouldNotBeNil)
				manager.RecordFetchAttempt("file")
				n, err := testutil.GatherAndCount(registry, "competence_service_fetch_attempts_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordRefresh(OutcomeSuccess) //nolint:errcheck // known outcome

			Convey("Then metric names and labels should follow them", func() {
				expected := `
# HELP test_unit_refreshes_total Refresh runs by outcome
# TYPE test_unit_refreshes_total counter
test_unit_refreshes_total{env="test",outcome="success"} 1
`
				So(testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_refreshes_total"), ShouldBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When a snapshot is published", func() {
			m.UpdateSnapshot(7, 3, 12, 42.5, 1700000000)

			Convey("Then the gauges should reflect it", func() {
				So(testutil.ToFloat64(m.snapshotSeq), ShouldEqual, 7)
				So(testutil.ToFloat64(m.categories), ShouldEqual, 3)
				So(testutil.ToFloat64(m.competencies), ShouldEqual, 12)
				So(testutil.ToFloat64(m.grandTotal), ShouldEqual, 42.5)
			})
		})

		Convey("When refresh outcomes are recorded", func() {
			So(m.RecordRefresh(OutcomeMalformed), ShouldBeNil)
			So(m.RecordRefresh(OutcomeMalformed), ShouldBeNil)
			err := m.RecordRefresh("exploded")

			Convey("Then known outcomes should count and unknown ones fail", func() {
				So(testutil.ToFloat64(m.refreshes.WithLabelValues(OutcomeMalformed)), ShouldEqual, 2)
				So(errors.Is(err, ErrUnknownOutcome), ShouldBeTrue)
			})
		})

		Convey("When queue and HTTP activity is recorded", func() {
			m.UpdateQueueCapacity(16)
			m.UpdateQueueSize(2)
			m.RecordQueueEnqueue()
			m.RecordQueueEnqueueError("full")
			m.RecordHTTPRequest("chart", "GET", "200", 3)
			m.RecordHTTPError("chart", "GET", "server_error", "high")

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 16)
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 2)
				So(testutil.ToFloat64(m.queueEnqueues), ShouldEqual, 1)
				So(testutil.ToFloat64(m.queueEnqueueErrors.WithLabelValues("full")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("chart", "GET", "200")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.errorRateByType.WithLabelValues("server_error", "high")), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then helpers should not panic", func() {
			So(func() {
				RecordFetchAttempt("http")
				RecordFetchFailure("fetch")
				RecordFetchLatency(12)
				RecordAggregationLatency(0.2)
				RecordAggregationError()
				UpdateSnapshot(1, 1, 1, 1, 1)
				_ = RecordRefresh(OutcomeStale)
				UpdateQueueSize(0)
				UpdateQueueCapacity(1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("closed")
				UpdateWorkerCount(1)
				RecordWorkerError()
				RecordHTTPRequest("totals", "GET", "200", 1)
				RecordHTTPError("totals", "GET", "client_error", "medium")
				UpdateSystem(1024, 10)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given a namespace and constant labels", t, func() {
		Init(WithNamespace("acme"), WithConstLabels(map[string]string{"deployment": "staging"}))
		defer Init()

		RecordFetchAttempt("https")

		Convey("Then the global registry reports under them", func() {
			expected := `
# HELP acme_service_fetch_attempts_total Data source fetch attempts by scheme
# TYPE acme_service_fetch_attempts_total counter
acme_service_fetch_attempts_total{deployment="staging",scheme="https"} 1
`
			So(testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "acme_service_fetch_attempts_total"), ShouldBeNil)

			n, err := testutil.GatherAndCount(GetRegistry(), "competence_service_fetch_attempts_total")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}
