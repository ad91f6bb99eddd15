// Package monitor polls the upcoming arrivals of a single chosen stop.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/models"
	"github.com/bussinfr/viewer/internal/realtime"
)

const pollerName = "monitor"

// Source fetches the arrivals of one stop
type Source interface {
	Arrivals(ctx context.Context, stopID string) ([]models.Arrival, error)
}

// Session describes the monitor state
type Session struct {
	Active               bool         `json:"active"`
	Stop                 *models.Stop `json:"stop,omitempty"`
	SecondsUntilNextPoll int          `json:"secondsUntilNextPoll"`
}

// Row is one expected arrival
type Row struct {
	Route   string `json:"route"`
	Time    string `json:"time"`
	Minutes string `json:"minutes"`
	Arrival int64  `json:"arrivalTime"`
}

// Table is the rendered arrival list of the monitored stop
type Table struct {
	StopID  string `json:"stopId"`
	Heading string `json:"heading"`
	Rows    []Row  `json:"rows"`
}

// Monitor is either idle or polling one target stop
type Monitor struct {
	cfg    *config.Config
	source Source
	env    realtime.Env
	every  func(ctx context.Context, interval time.Duration, fn func(context.Context)) *realtime.Task

	countdown *realtime.Countdown
	latest    realtime.Latest

	mu     sync.Mutex
	target *models.Stop
	table  *Table
	task   *realtime.Task
}

// New creates an idle monitor
func New(cfg *config.Config, source Source, env realtime.Env) *Monitor {
	return &Monitor{
		cfg:       cfg,
		source:    source,
		env:       env,
		every:     realtime.Every,
		countdown: realtime.NewCountdown(cfg.UpdateSec),
	}
}

// Start monitors stop, replacing any previous target. The first tick polls
// immediately. ctx bounds the lifetime of the polling task.
func (m *Monitor) Start(ctx context.Context, stop models.Stop) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.target = &stop
	m.table = nil
	m.countdown.Zero()
	m.latest.Invalidate()

	m.env.Board.Clear(display.MonitorUpdate, display.Monitor)
	m.env.Board.Set(display.MonitorStop,
		fmt.Sprintf("Monitoring %s ID %s %s", stop.StopName, stop.StopID, stop.StopDesc))

	if m.task != nil {
		select {
		case <-m.task.Done():
			m.task = nil
		default:
		}
	}
	if m.task == nil {
		m.task = m.every(ctx, time.Second, m.Tick)
	}

	log.Printf("Monitor: watching stop %s (%s)", stop.StopID, stop.StopName)
}

// Stop returns to idle, clears the monitor display and ends the polling
// task. No tick runs after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	wasActive := m.target != nil
	m.target = nil
	m.table = nil
	m.countdown.Zero()
	m.latest.Invalidate()
	m.env.Board.Clear(display.MonitorStop, display.MonitorUpdate, display.Monitor)
	task := m.task
	m.task = nil
	m.mu.Unlock()

	// Tick takes m.mu, so wait for the task outside the lock
	if task != nil {
		task.Stop()
	}
	if wasActive {
		log.Println("Monitor: stopped")
	}
}

// Tick runs once per second while monitoring. Idle ticks do nothing.
func (m *Monitor) Tick(ctx context.Context) {
	m.mu.Lock()
	if m.target == nil {
		m.mu.Unlock()
		return
	}
	stop := *m.target

	fire, remaining := m.countdown.Tick()
	if !fire {
		m.env.Board.Set(display.MonitorUpdate,
			fmt.Sprintf("Next update on stop %s in %d seconds", stop.StopID, remaining))
		m.mu.Unlock()
		return
	}
	id := m.latest.Begin()
	m.mu.Unlock()

	arrivals, err := m.source.Arrivals(ctx, stop.StopID)

	m.mu.Lock()
	if !m.latest.IsCurrent(id) || m.target == nil {
		m.mu.Unlock()
		m.env.Report(ctx, pollerName, realtime.ErrStale)
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.env.Report(ctx, pollerName, fmt.Errorf("failed to fetch arrivals for stop %s: %w", stop.StopID, err))
		return
	}

	table := m.render(stop.StopID, arrivals)
	m.table = table
	m.env.Board.Set(display.Monitor, table.Heading)
	m.mu.Unlock()

	m.env.Report(ctx, pollerName, nil)
}

// Session returns the current monitor state
func (m *Monitor) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target == nil {
		return Session{}
	}
	stop := *m.target
	return Session{
		Active:               true,
		Stop:                 &stop,
		SecondsUntilNextPoll: m.countdown.Remaining(),
	}
}

// Table returns the latest arrival table, or nil when none was rendered
func (m *Monitor) Table() *Table {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.table == nil {
		return nil
	}
	t := *m.table
	t.Rows = append([]Row(nil), m.table.Rows...)
	return &t
}

func (m *Monitor) render(stopID string, arrivals []models.Arrival) *Table {
	rows := make([]Row, 0, len(arrivals))
	for _, a := range arrivals {
		f := m.env.Format.Format(a.ArrivalTime)
		rows = append(rows, Row{
			Route:   a.Route,
			Time:    f.Clock,
			Minutes: f.Relative,
			Arrival: a.ArrivalTime,
		})
	}

	return &Table{
		StopID: stopID,
		Heading: fmt.Sprintf("Expect %d arrivals at stop %s as of %s",
			len(arrivals), stopID, m.env.Format.ClockNow()),
		Rows: rows,
	}
}
