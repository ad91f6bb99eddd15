package realtime

import "fmt"

// ZoomTooLowError is returned when the map is zoomed out past the level at
// which a layer is shown.
type ZoomTooLowError struct {
	Zoom int
	Min  int
}

func (e *ZoomTooLowError) Error() string {
	return fmt.Sprintf("zoom %d is below minimum %d", e.Zoom, e.Min)
}

// OverLimitError is returned when the service returns more entities than the
// configured cap.
type OverLimitError struct {
	Count int
	Limit int
}

func (e *OverLimitError) Error() string {
	return fmt.Sprintf("%d results exceed limit %d", e.Count, e.Limit)
}

// OverLimit reports whether count exceeds limit. A limit of 0 means no cap.
func OverLimit(count, limit int) bool {
	return limit > 0 && count > limit
}

// Cycle outcomes recorded per poll
const (
	OutcomeOK        = "ok"
	OutcomeZoomLow   = "zoom_low"
	OutcomeOverLimit = "over_limit"
	OutcomeError     = "error"
	OutcomeStale     = "stale"
)
