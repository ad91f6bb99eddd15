package realtime

import (
	"context"
	"errors"
	"log"

	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/mapview"
	"github.com/bussinfr/viewer/internal/telemetry"
	"github.com/bussinfr/viewer/internal/timefmt"
	"github.com/bussinfr/viewer/internal/webservice"
)

// ErrStale is returned when a response arrives after a newer request was
// issued. Stale results are dropped without rendering.
var ErrStale = errors.New("superseded by a newer request")

// Env bundles the collaborators the pollers render through
type Env struct {
	Map     mapview.Map
	Board   *display.Board
	Format  *timefmt.Formatter
	Metrics *telemetry.Metrics
}

// Report records the outcome of one poll cycle. Fetch failures become a
// blocking alert; zoom and limit errors were already written to a status
// line by the poller. Cancelled and stale cycles are silent.
func (e Env) Report(ctx context.Context, poller string, err error) {
	var (
		zoomErr  *ZoomTooLowError
		limitErr *OverLimitError
	)

	switch {
	case err == nil:
		e.Metrics.CountCycle(poller, OutcomeOK)
	case errors.Is(err, ErrStale):
		e.Metrics.CountCycle(poller, OutcomeStale)
	case ctx.Err() != nil:
		// shutting down
	case errors.As(err, &zoomErr):
		e.Metrics.CountCycle(poller, OutcomeZoomLow)
	case errors.As(err, &limitErr):
		e.Metrics.CountCycle(poller, OutcomeOverLimit)
		log.Printf("%s: %v", poller, err)
	default:
		e.Metrics.CountCycle(poller, OutcomeError)
		log.Printf("%s: poll failed: %v", poller, err)
		e.Board.Alert(AlertText(err))
	}
}

// AlertText is the message shown to the user for a failed fetch. A non-200
// response shows its status text.
func AlertText(err error) string {
	var netErr *webservice.NetworkError
	if errors.As(err, &netErr) {
		return netErr.StatusText()
	}
	var parseErr *webservice.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Error()
	}
	return err.Error()
}
