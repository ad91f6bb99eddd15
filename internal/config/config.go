package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// commentMarker starts a comment that runs to the end of the line
const commentMarker = "#!"

// Config is the viewer configuration. It is loaded once at startup and
// never mutated afterwards; components share it by pointer.
type Config struct {
	// Page
	TabTitle string `json:"tabTitle"`
	Header   string `json:"header"`
	Footer   string `json:"footer"`

	// Map
	MapLat   float64 `json:"mapLat"`
	MapLng   float64 `json:"mapLng"`
	InitZoom int     `json:"initZoom"`
	MinZoom  int     `json:"minZoom"`
	MaxZoom  int     `json:"maxZoom"`

	// Polling
	UpdateSec          int `json:"updateSec"`
	MinZoomForVehicles int `json:"minZoomForVehicles"`
	MinZoomForStations int `json:"minZoomForStations"`
	// 0 or absent means no cap
	MaxVehicles int `json:"maxVehicles"`
	MaxStations int `json:"maxStations"`

	// Backend
	WebservicesURL string `json:"webservicesURL"`
}

// LoadFile reads and parses a viewer configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a commented JSON configuration. Everything after "#!" on a
// line is dropped, as are control characters, before the JSON is decoded.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(StripComments(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.WebservicesURL = strings.TrimRight(cfg.WebservicesURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StripComments removes "#!" comments and control characters and joins the
// lines into a single JSON text.
func StripComments(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, commentMarker); i >= 0 {
			line = line[:i]
		}
		out.WriteString(strings.Map(dropControl, line))
	}

	return out.Bytes()
}

func dropControl(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

// Validate checks the settings the pollers depend on
func (c *Config) Validate() error {
	var errs []error

	if c.WebservicesURL == "" {
		errs = append(errs, errors.New("webservicesURL is required"))
	}
	if c.UpdateSec <= 0 {
		errs = append(errs, fmt.Errorf("updateSec must be > 0, got %d", c.UpdateSec))
	}
	if c.MaxVehicles < 0 {
		errs = append(errs, fmt.Errorf("maxVehicles must be >= 0, got %d", c.MaxVehicles))
	}
	if c.MaxStations < 0 {
		errs = append(errs, fmt.Errorf("maxStations must be >= 0, got %d", c.MaxStations))
	}
	if c.MinZoom > c.MaxZoom {
		errs = append(errs, fmt.Errorf("minZoom (%d) is above maxZoom (%d)", c.MinZoom, c.MaxZoom))
	}
	if c.MapLat < -90 || c.MapLat > 90 {
		errs = append(errs, fmt.Errorf("mapLat out of range: %f", c.MapLat))
	}
	if c.MapLng < -180 || c.MapLng > 180 {
		errs = append(errs, fmt.Errorf("mapLng out of range: %f", c.MapLng))
	}

	return errors.Join(errs...)
}

// Public is the subset of the configuration served to the browser page
type Public struct {
	TabTitle string  `json:"tabTitle"`
	Header   string  `json:"header"`
	Footer   string  `json:"footer"`
	MapLat   float64 `json:"mapLat"`
	MapLng   float64 `json:"mapLng"`
	InitZoom int     `json:"initZoom"`
	MinZoom  int     `json:"minZoom"`
	MaxZoom  int     `json:"maxZoom"`
}

// Public returns the page-facing subset of the configuration
func (c *Config) Public() Public {
	return Public{
		TabTitle: c.TabTitle,
		Header:   c.Header,
		Footer:   c.Footer,
		MapLat:   c.MapLat,
		MapLng:   c.MapLng,
		InitZoom: c.InitZoom,
		MinZoom:  c.MinZoom,
		MaxZoom:  c.MaxZoom,
	}
}
