package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func scrape(m *Manager) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on its own registry", t, func() {
		m := NewManager()

		Convey("When recording ledger activity", func() {
			m.RecordMutation("add")
			m.RecordMutation("add")
			m.RecordTradeExecuted()
			m.RecordTradeRejected("not_owned", "too_many_cards")
			m.RecordMilestone("milestone_10")
			m.RecordValueSnapshot()
			m.RecordPriceRequest("ok")
			m.RecordEvent("trade.executed")
			m.RecordEventError()
			m.ObserveHTTP("/api/collectors/{id}/cards", http.MethodPost, 201, 5*time.Millisecond)
			m.ObserveTx(time.Millisecond)

			body := scrape(m)

			Convey("Then the exposition contains every series", func() {
				So(body, ShouldContainSubstring, `cardledger_collection_mutations_total{op="add"} 2`)
				So(body, ShouldContainSubstring, `cardledger_trade_trades_total{result="executed"} 1`)
				So(body, ShouldContainSubstring, `cardledger_trade_trades_total{result="rejected"} 1`)
				So(body, ShouldContainSubstring, `cardledger_trade_validation_errors_total{code="not_owned"} 1`)
				So(body, ShouldContainSubstring, `cardledger_milestone_reached_total{key="milestone_10"} 1`)
				So(body, ShouldContainSubstring, `cardledger_valuation_snapshots_total 1`)
				So(body, ShouldContainSubstring, `cardledger_events_upstream_errors_total 1`)
				So(body, ShouldContainSubstring, `status_code="201"`)
				So(body, ShouldContainSubstring, `cardledger_store_transaction_duration_seconds_count 1`)
			})
		})

		Convey("When a custom namespace and registry are used", func() {
			reg := prometheus.NewRegistry()
			custom := NewManager(WithNamespace("test"), WithRegistry(reg), WithHistogramBuckets([]float64{0.1, 1}))
			custom.RecordMutation("remove")

			Convey("Then metrics land on that registry", func() {
				So(custom.Registry(), ShouldEqual, reg)
				So(scrape(custom), ShouldContainSubstring, `test_collection_mutations_total{op="remove"} 1`)
			})
		})
	})
}

func TestNilManager(t *testing.T) {
	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Then recording is a no-op", func() {
			So(func() {
				m.RecordMutation("add")
				m.RecordTradeRejected("empty_trade")
				m.ObserveHTTP("/", http.MethodGet, 200, time.Second)
			}, ShouldNotPanic)
			So(m.Registry(), ShouldBeNil)
		})
	})
}
