package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/webservice"
)

func TestCountdown(t *testing.T) {
	c := NewCountdown(3)

	// fires straight away
	if fire, _ := c.Tick(); !fire {
		t.Fatal("expected first tick to fire")
	}

	want := []struct {
		fire      bool
		remaining int
	}{
		{false, 2},
		{false, 1},
		{true, 0},
		{false, 2},
	}
	for i, w := range want {
		fire, remaining := c.Tick()
		if fire != w.fire || remaining != w.remaining {
			t.Errorf("tick %d = (%v, %d), expected (%v, %d)", i, fire, remaining, w.fire, w.remaining)
		}
	}

	c.Zero()
	if c.Remaining() != 0 {
		t.Errorf("Remaining after Zero = %d", c.Remaining())
	}
	if fire, _ := c.Tick(); !fire {
		t.Error("expected tick after Zero to fire")
	}
	if c.Remaining() != 3 {
		t.Errorf("Remaining after fire = %d, expected 3", c.Remaining())
	}
}

func TestLatest(t *testing.T) {
	var l Latest

	first := l.Begin()
	if !l.IsCurrent(first) {
		t.Fatal("fresh id should be current")
	}

	second := l.Begin()
	if l.IsCurrent(first) {
		t.Error("superseded id should not be current")
	}
	if !l.IsCurrent(second) {
		t.Error("newest id should be current")
	}

	l.Invalidate()
	if l.IsCurrent(second) {
		t.Error("invalidated id should not be current")
	}
}

func TestEveryRunsImmediatelyAndStops(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{}, 1)

	task := Every(context.Background(), time.Hour, func(ctx context.Context) {
		runs.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
	})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run immediately")
	}

	task.Stop()
	task.Stop()

	select {
	case <-task.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}

	if got := runs.Load(); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
}

func TestEveryTicks(t *testing.T) {
	var runs atomic.Int32
	task := Every(context.Background(), 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	task.Stop()

	n := runs.Load()
	if n < 3 {
		t.Fatalf("expected at least 3 runs, got %d", n)
	}

	time.Sleep(30 * time.Millisecond)
	if runs.Load() != n {
		t.Error("task kept running after Stop")
	}
}

func TestEveryStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Every(ctx, time.Hour, func(ctx context.Context) {})
	cancel()

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not exit after parent cancel")
	}
}

func TestOverLimit(t *testing.T) {
	tests := []struct {
		count, limit int
		want         bool
	}{
		{count: 3, limit: 5, want: false},
		{count: 5, limit: 5, want: false},
		{count: 6, limit: 5, want: true},
		{count: 1000, limit: 0, want: false},
		{count: 0, limit: 0, want: false},
	}

	for _, tt := range tests {
		if got := OverLimit(tt.count, tt.limit); got != tt.want {
			t.Errorf("OverLimit(%d, %d) = %v, expected %v", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestAlertText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "network error shows status text",
			err:  fmt.Errorf("failed to fetch: %w", &webservice.NetworkError{Endpoint: "vehicleService", StatusCode: 503, Status: "503 Service Unavailable"}),
			want: "503 Service Unavailable",
		},
		{
			name: "parse error",
			err:  &webservice.ParseError{Endpoint: "tripService", Err: errors.New("unexpected EOF")},
			want: "error parsing tripService JSON: unexpected EOF",
		},
		{
			name: "other",
			err:  errors.New("connection refused"),
			want: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlertText(tt.err); got != tt.want {
				t.Errorf("AlertText() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestEnvReport(t *testing.T) {
	board := display.NewBoard()
	env := Env{Board: board}
	ctx := context.Background()

	env.Report(ctx, "vehicles", nil)
	env.Report(ctx, "vehicles", ErrStale)
	env.Report(ctx, "vehicles", &ZoomTooLowError{Zoom: 3, Min: 10})
	env.Report(ctx, "vehicles", &OverLimitError{Count: 10, Limit: 5})
	if n := len(board.Snapshot(0).Alerts); n != 0 {
		t.Fatalf("expected no alerts, got %d", n)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	env.Report(cancelled, "vehicles", context.Canceled)
	if n := len(board.Snapshot(0).Alerts); n != 0 {
		t.Fatalf("cancelled cycle should not alert, got %d", n)
	}

	env.Report(ctx, "vehicles", &webservice.NetworkError{StatusCode: 404})
	alerts := board.Snapshot(0).Alerts
	if len(alerts) != 1 || alerts[0].Message != "404 Not Found" {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
}
