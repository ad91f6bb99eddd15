package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds process configuration for the viewer binary
type Settings struct {
	// Viewer configuration file (commented JSON)
	ConfigPath string

	// HTTP surface
	ListenAddr     string
	AllowedOrigins []string
	StaticDir      string

	// Polling
	RoutesCSV      string
	RequestTimeout time.Duration
	TimeZone       string

	// Initial headless viewport size in pixels
	ViewportWidth  int
	ViewportHeight int
}

// LoadEnvFiles loads .env then .env.local (which overrides for local
// development). Missing files are ignored.
func LoadEnvFiles(dir string) {
	_ = godotenv.Load(dir + "/.env")
	_ = godotenv.Overload(dir + "/.env.local")
}

// LoadSettings reads settings from environment variables with sensible defaults
func LoadSettings() *Settings {
	return &Settings{
		ConfigPath: getEnv("VIEWER_CONFIG", "config.json"),

		ListenAddr:     getEnv("LISTEN_ADDR", ":8081"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		StaticDir:      getEnv("STATIC_DIR", ""),

		RoutesCSV:      getEnv("ROUTES_CSV", ""),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 15)) * time.Second,
		TimeZone:       getEnv("VIEWER_TZ", ""),

		ViewportWidth:  getEnvInt("VIEWPORT_WIDTH", 1024),
		ViewportHeight: getEnvInt("VIEWPORT_HEIGHT", 768),
	}
}

// DevSettings holds process configuration for the development backend
type DevSettings struct {
	ListenAddr string
	AssetsDir  string

	// Storage: Postgres when DatabaseURL is set, SQLite otherwise
	DatabaseURL string
	SQLitePath  string

	// Data sources
	Seed           bool
	StopsFile      string
	VehiclesURL    string
	TripsURL       string
	IngestInterval time.Duration
	Retention      time.Duration
	FeedTimeout    time.Duration
}

// LoadDevSettings reads development backend settings from the environment
func LoadDevSettings() *DevSettings {
	return &DevSettings{
		ListenAddr: getEnv("DEV_LISTEN_ADDR", ":8000"),
		AssetsDir:  getEnv("DEV_ASSETS_DIR", "assets"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("DEV_DB_PATH", "data/dev.db"),

		Seed:           getEnvBool("DEV_SEED", true),
		StopsFile:      getEnv("GTFS_STOPS_FILE", ""),
		VehiclesURL:    getEnv("GTFSRT_VEHICLES_URL", ""),
		TripsURL:       getEnv("GTFSRT_TRIPS_URL", ""),
		IngestInterval: time.Duration(getEnvInt("INGEST_INTERVAL_SEC", 30)) * time.Second,
		Retention:      time.Duration(getEnvInt("ARRIVAL_RETENTION_MIN", 10)) * time.Minute,
		FeedTimeout:    time.Duration(getEnvInt("FEED_TIMEOUT_SEC", 20)) * time.Second,
	}
}

// Ingesting reports whether any GTFS-RT feed is configured
func (s *DevSettings) Ingesting() bool {
	return s.VehiclesURL != "" || s.TripsURL != ""
}

// Location resolves TimeZone, falling back to time.Local
func (s *Settings) Location() *time.Location {
	if s.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
