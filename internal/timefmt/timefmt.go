// Package timefmt renders Unix timestamps as a clock string plus a phrase
// relative to the current time, e.g. "5:20 PM EST" / "In 2 minutes".
package timefmt

import (
	"fmt"
	"math"
	"time"
)

// ClockLayout renders hour:minute with the zone abbreviation (US-English style)
const ClockLayout = "3:04 PM MST"

// Formatted holds both renderings of one timestamp
type Formatted struct {
	Clock    string `json:"clock"`
	Relative string `json:"relative"`
}

// Formatter formats timestamps against an injectable clock and location
type Formatter struct {
	Now      func() time.Time
	Location *time.Location
}

// New creates a Formatter using the wall clock and the given location.
// A nil location means time.Local.
func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{Now: time.Now, Location: loc}
}

// Format returns the clock and relative strings for a Unix timestamp
func (f *Formatter) Format(unixSeconds int64) Formatted {
	return Formatted{
		Clock:    f.Clock(unixSeconds),
		Relative: Relative(unixSeconds, f.now().Unix()),
	}
}

// Clock renders a Unix timestamp as e.g. "5:20 PM EST"
func (f *Formatter) Clock(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).In(f.location()).Format(ClockLayout)
}

// ClockNow renders the formatter's current time
func (f *Formatter) ClockNow() string {
	return f.Clock(f.now().Unix())
}

// Relative describes unixSeconds relative to nowSeconds. Times at or before
// now read "N minutes ago", later times "In N minutes"; N is rounded to the
// nearest minute and may be 0.
func Relative(unixSeconds, nowSeconds int64) string {
	if nowSeconds >= unixSeconds {
		minutes := int64(math.Round(float64(nowSeconds-unixSeconds) / 60.0))
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	minutes := int64(math.Round(float64(unixSeconds-nowSeconds) / 60.0))
	return fmt.Sprintf("In %d minutes", minutes)
}

func (f *Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f *Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}
