package timefmt

import (
	"testing"
	"time"
)

func fixedFormatter(t *testing.T, now time.Time) *Formatter {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return &Formatter{
		Now:      func() time.Time { return now },
		Location: loc,
	}
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2026, 1, 15, 22, 20, 0, 0, time.UTC)
	f := fixedFormatter(t, now)

	tests := []struct {
		name     string
		offset   time.Duration
		expected string
	}{
		{"two minutes ago", -120 * time.Second, "2 minutes ago"},
		{"two minutes ahead", 120 * time.Second, "In 2 minutes"},
		{"now", 0, "0 minutes ago"},
		{"rounds down", -89 * time.Second, "1 minutes ago"},
		{"rounds half up", -90 * time.Second, "2 minutes ago"},
		{"future under half minute", 29 * time.Second, "In 0 minutes"},
		{"an hour ahead", time.Hour, "In 60 minutes"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := f.Format(now.Add(tc.offset).Unix()).Relative
			if got != tc.expected {
				t.Errorf("Relative = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	now := time.Date(2026, 1, 15, 22, 20, 0, 0, time.UTC)
	f := fixedFormatter(t, now)

	got := f.Format(now.Unix()).Clock
	if got != "5:20 PM EST" {
		t.Errorf("Clock = %q, expected %q", got, "5:20 PM EST")
	}

	summer := time.Date(2026, 7, 4, 13, 5, 0, 0, time.UTC)
	if got := f.Clock(summer.Unix()); got != "9:05 AM EDT" {
		t.Errorf("Clock = %q, expected %q", got, "9:05 AM EDT")
	}
}

func TestClockNowUsesInjectedClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &Formatter{Now: func() time.Time { return now }, Location: time.UTC}

	if got := f.ClockNow(); got != "12:00 AM UTC" {
		t.Errorf("ClockNow = %q, expected %q", got, "12:00 AM UTC")
	}
}

func TestNewDefaultsToLocal(t *testing.T) {
	f := New(nil)
	if f.Location != time.Local {
		t.Errorf("expected time.Local, got %v", f.Location)
	}
	if f.Now == nil {
		t.Error("expected Now to be set")
	}
}
