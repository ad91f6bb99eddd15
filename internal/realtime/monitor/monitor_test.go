package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/models"
	"github.com/bussinfr/viewer/internal/realtime"
	"github.com/bussinfr/viewer/internal/timefmt"
	"github.com/bussinfr/viewer/internal/webservice"
)

var fixedNow = time.Date(2026, 2, 1, 22, 0, 0, 0, time.UTC)

var unionStation = models.Stop{
	StopID:   "34343",
	StopName: "Union Station",
	StopDesc: "Vehicles Travelling North",
}

type fixture struct {
	board    *display.Board
	monitor  *Monitor
	requests atomic.Int32
	lastStop atomic.Value
	status   atomic.Int32
}

// noTicks replaces the one-second scheduler so tests drive Tick by hand
func noTicks(ctx context.Context, _ time.Duration, _ func(context.Context)) *realtime.Task {
	return realtime.Every(ctx, time.Hour, func(context.Context) {})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.status.Store(http.StatusOK)

	now := fixedNow.Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.lastStop.Store(r.URL.Query().Get("stopID"))
		if code := int(f.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		fmt.Fprintf(w, `[{"route":"NRTH","arrivaltime":%d},{"route":"WEST","arrivaltime":%d}]`, now+300, now+900)
	}))
	t.Cleanup(srv.Close)

	f.board = display.NewBoard()
	env := realtime.Env{
		Board:  f.board,
		Format: &timefmt.Formatter{Now: func() time.Time { return fixedNow }, Location: time.UTC},
	}
	cfg := &config.Config{UpdateSec: 3, WebservicesURL: srv.URL}

	f.monitor = New(cfg, webservice.NewClient(srv.URL, 5*time.Second, nil), env)
	f.monitor.every = noTicks
	t.Cleanup(f.monitor.Stop)
	return f
}

func TestStartThenStopBeforeFirstTick(t *testing.T) {
	f := newFixture(t)

	f.monitor.Start(context.Background(), unionStation)
	if !f.monitor.Session().Active {
		t.Fatal("expected an active session after Start")
	}
	if got := f.board.Get(display.MonitorStop); got != "Monitoring Union Station ID 34343 Vehicles Travelling North" {
		t.Errorf("monitor stop line = %q", got)
	}

	f.monitor.Stop()

	if f.monitor.Session().Active {
		t.Error("expected idle after Stop")
	}
	if f.monitor.Table() != nil {
		t.Error("expected no rendered table")
	}
	if f.requests.Load() != 0 {
		t.Errorf("expected no fetch, got %d", f.requests.Load())
	}
	if f.board.Get(display.MonitorStop) != "" {
		t.Error("monitor lines should be cleared")
	}

	// idle ticks are no-ops
	f.monitor.Tick(context.Background())
	if f.requests.Load() != 0 || f.monitor.Table() != nil {
		t.Error("tick while idle should do nothing")
	}
}

func TestTickRendersArrivals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.Start(ctx, unionStation)
	f.monitor.Tick(ctx)

	if f.requests.Load() != 1 {
		t.Fatalf("expected first tick to poll, got %d requests", f.requests.Load())
	}
	if got := f.lastStop.Load(); got != "34343" {
		t.Errorf("stopID = %v", got)
	}

	table := f.monitor.Table()
	if table == nil {
		t.Fatal("expected a rendered table")
	}
	if table.Heading != "Expect 2 arrivals at stop 34343 as of 10:00 PM UTC" {
		t.Errorf("heading = %q", table.Heading)
	}
	want := []Row{
		{Route: "NRTH", Time: "10:05 PM UTC", Minutes: "In 5 minutes", Arrival: fixedNow.Unix() + 300},
		{Route: "WEST", Time: "10:15 PM UTC", Minutes: "In 15 minutes", Arrival: fixedNow.Unix() + 900},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(table.Rows))
	}
	for i := range want {
		if table.Rows[i] != want[i] {
			t.Errorf("row %d = %+v, expected %+v", i, table.Rows[i], want[i])
		}
	}
	if f.board.Get(display.Monitor) != table.Heading {
		t.Errorf("monitor line = %q", f.board.Get(display.Monitor))
	}

	f.monitor.Tick(ctx)
	if got := f.board.Get(display.MonitorUpdate); got != "Next update on stop 34343 in 2 seconds" {
		t.Errorf("monitor update line = %q", got)
	}
	if f.requests.Load() != 1 {
		t.Error("counting down should not poll")
	}
}

func TestTickFailureKeepsTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.Start(ctx, unionStation)
	f.monitor.Tick(ctx)
	before := f.monitor.Table()

	f.status.Store(http.StatusServiceUnavailable)
	for i := 0; i < 3; i++ {
		f.monitor.Tick(ctx)
	}

	if f.requests.Load() != 2 {
		t.Fatalf("expected a second poll, got %d requests", f.requests.Load())
	}
	after := f.monitor.Table()
	if after == nil || after.Heading != before.Heading {
		t.Error("failed poll should leave the prior table")
	}
	alerts := f.board.Snapshot(0).Alerts
	if len(alerts) != 1 || alerts[0].Message != "503 Service Unavailable" {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
	if !f.monitor.Session().Active {
		t.Error("a failed poll should not end the session")
	}
}

func TestStartReplacesTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.Start(ctx, unionStation)
	f.monitor.Tick(ctx)

	other := models.Stop{StopID: "17724", StopName: "19th St & Stout St"}
	f.monitor.Start(ctx, other)

	if f.monitor.Table() != nil {
		t.Error("starting a new target should clear the table")
	}
	if s := f.monitor.Session(); s.Stop == nil || s.Stop.StopID != "17724" {
		t.Errorf("unexpected session: %+v", s)
	}

	f.monitor.Tick(ctx)
	if got := f.lastStop.Load(); got != "17724" {
		t.Errorf("polled stop = %v, expected 17724", got)
	}
}

func TestScheduledTaskPollsImmediately(t *testing.T) {
	f := newFixture(t)
	f.monitor.every = realtime.Every

	f.monitor.Start(context.Background(), unionStation)

	deadline := time.Now().Add(2 * time.Second)
	for f.monitor.Table() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.monitor.Stop()

	if f.requests.Load() < 1 {
		t.Fatal("expected the scheduled task to poll")
	}
	n := f.requests.Load()
	time.Sleep(20 * time.Millisecond)
	if f.requests.Load() != n {
		t.Error("no poll should happen after Stop")
	}
}
