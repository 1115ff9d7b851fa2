package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/janiskrasemann/forecast/internal/fetcher"
	"github.com/janiskrasemann/forecast/internal/reporter"
)

func TestObserverCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TaskStarted("Yahoo")
	m.TaskStarted("OpenWeather")
	if got := testutil.ToFloat64(m.activeTasks); got != 2 {
		t.Errorf("expected 2 active tasks, got %v", got)
	}

	m.TaskFinished("Yahoo", reporter.StatusNoData, fetcher.KindNone, 10*time.Millisecond)
	m.TaskFinished("OpenWeather", reporter.StatusFailed, fetcher.KindTimeout, time.Second)

	if got := testutil.ToFloat64(m.activeTasks); got != 0 {
		t.Errorf("expected 0 active tasks, got %v", got)
	}
	if got := testutil.ToFloat64(m.tasksFinished.WithLabelValues("Yahoo", "no_data")); got != 1 {
		t.Errorf("expected 1 no_data finish for Yahoo, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetchFailures.WithLabelValues("OpenWeather", "timeout")); got != 1 {
		t.Errorf("expected 1 timeout for OpenWeather, got %v", got)
	}
	if got := testutil.CollectAndCount(m.fetchFailures); got != 1 {
		t.Errorf("expected only one failure series, got %d", got)
	}
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.TaskStarted("WeatherUnlocked")
	m.TaskFinished("WeatherUnlocked", reporter.StatusReported, fetcher.KindNone, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `forecast_tasks_finished_total{source="WeatherUnlocked",status="reported"} 1`) {
		t.Errorf("expected finished counter in output, got:\n%s", body)
	}
}
