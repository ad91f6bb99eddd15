// Package display holds the user-facing status text of the viewer: one
// line per status field and a log of blocking alerts.
package display

import (
	"log"
	"sync"
	"time"
)

// Field names a status line on the page
type Field string

const (
	VehicleUpdate Field = "vehicleUpdate"
	VehicleInfo   Field = "vehicleInfo"
	StopInfo      Field = "stopInfo"
	MonitorStop   Field = "monitorStop"
	MonitorUpdate Field = "monitorUpdate"
	Monitor       Field = "monitor"
)

const maxAlerts = 50

// Alert is a message that would interrupt the user with a dialog
type Alert struct {
	ID      uint64    `json:"id"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Status is a snapshot of the board
type Status struct {
	Lines  map[Field]string `json:"lines"`
	Alerts []Alert          `json:"alerts"`
}

// Board is safe for concurrent use
type Board struct {
	mu      sync.RWMutex
	lines   map[Field]string
	alerts  []Alert
	nextID  uint64
	onAlert func()
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{lines: make(map[Field]string)}
}

// OnAlert registers a hook run after every alert (e.g. a metrics counter)
func (b *Board) OnAlert(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAlert = fn
}

// Set replaces the text of a status line
func (b *Board) Set(field Field, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[field] = text
}

// Get returns the text of a status line
func (b *Board) Get(field Field) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lines[field]
}

// Clear empties the given status lines
func (b *Board) Clear(fields ...Field) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range fields {
		delete(b.lines, f)
	}
}

// Alert records a blocking alert
func (b *Board) Alert(message string) {
	log.Printf("Alert: %s", message)

	b.mu.Lock()
	b.nextID++
	b.alerts = append(b.alerts, Alert{ID: b.nextID, Message: message, At: time.Now().UTC()})
	if len(b.alerts) > maxAlerts {
		b.alerts = b.alerts[len(b.alerts)-maxAlerts:]
	}
	hook := b.onAlert
	b.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Snapshot returns every status line and the retained alerts with an ID
// greater than after, read together.
func (b *Board) Snapshot(after uint64) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lines := make(map[Field]string, len(b.lines))
	for k, v := range b.lines {
		lines[k] = v
	}
	return Status{Lines: lines, Alerts: b.alertsLocked(after)}
}

func (b *Board) alertsLocked(after uint64) []Alert {
	out := make([]Alert, 0)
	for _, a := range b.alerts {
		if a.ID > after {
			out = append(out, a)
		}
	}
	return out
}
