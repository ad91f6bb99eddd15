package realtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeView struct {
	listeners []func()
}

func (v *fakeView) OnChange(fn func()) {
	v.listeners = append(v.listeners, fn)
}

func (v *fakeView) change() {
	for _, fn := range v.listeners {
		fn()
	}
}

type fakeTimed struct {
	resets atomic.Int32
}

func (f *fakeTimed) ResetCountdown() {
	f.resets.Add(1)
}

type fakeUpdater chan context.Context

func (f fakeUpdater) Update(ctx context.Context) {
	f <- ctx
}

type ctxKey struct{}

func TestFollowViewport(t *testing.T) {
	view := &fakeView{}
	timed := &fakeTimed{}
	stops := make(fakeUpdater, 1)
	ctx := context.WithValue(context.Background(), ctxKey{}, "app")

	FollowViewport(ctx, view, timed, stops)
	if timed.resets.Load() != 0 || len(stops) != 0 {
		t.Fatal("nothing should run before a viewport change")
	}

	view.change()

	if got := timed.resets.Load(); got != 1 {
		t.Errorf("countdown reset %d times, expected 1", got)
	}
	select {
	case got := <-stops:
		if got.Value(ctxKey{}) != "app" {
			t.Error("refresh should run on the context given to FollowViewport")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stop refresh was not started")
	}
}
