package devservice

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bussinfr/viewer/internal/models"
)

// SQLiteStore keeps the service tables in a SQLite file
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex // serializes table replacement and cleanup
}

// OpenSQLite opens a SQLite database with WAL mode enabled
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; readers share the same connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	log.Printf("Connected to SQLite database: %s", dbPath)
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the tables if they don't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func sqlitePlaceholder(int) string { return "?" }

// Vehicles returns the vehicles matching q ordered by route
func (s *SQLiteStore) Vehicles(ctx context.Context, q VehicleQuery) ([]models.Vehicle, error) {
	f := filter{placeholder: sqlitePlaceholder}
	f.addArea(q.Area)
	f.addIn("route", q.Routes)

	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+vehicleColumns+" FROM vehicles"+f.where()+" ORDER BY route", f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]models.Vehicle, 0)
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.Route, &v.CurrentStatus, &v.Timestamp, &v.Lat, &v.Lon, &v.Bearing); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle row: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vehicle rows: %w", err)
	}
	return vehicles, nil
}

// Stops returns the stops inside area ordered by latitude
func (s *SQLiteStore) Stops(ctx context.Context, area Area) ([]models.Stop, error) {
	f := filter{placeholder: sqlitePlaceholder}
	f.addArea(area)

	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+stopColumns+" FROM stops"+f.where()+" ORDER BY lat", f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	stops := make([]models.Stop, 0)
	for rows.Next() {
		var st models.Stop
		if err := rows.Scan(&st.StopID, &st.StopName, &st.StopDesc, &st.Lat, &st.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan stop row: %w", err)
		}
		stops = append(stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stop rows: %w", err)
	}
	return stops, nil
}

// Arrivals returns the arrivals at a stop no earlier than notBefore, soonest
// first.
func (s *SQLiteStore) Arrivals(ctx context.Context, stopID string, notBefore int64) ([]models.Arrival, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT route, arrivaltime FROM trip_arrivals WHERE stopid = ? AND arrivaltime >= ? ORDER BY arrivaltime, route",
		stopID, notBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query arrivals: %w", err)
	}
	defer rows.Close()

	arrivals := make([]models.Arrival, 0)
	for rows.Next() {
		var a models.Arrival
		if err := rows.Scan(&a.Route, &a.ArrivalTime); err != nil {
			return nil, fmt.Errorf("failed to scan arrival row: %w", err)
		}
		arrivals = append(arrivals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating arrival rows: %w", err)
	}
	return arrivals, nil
}

// ReplaceVehicles swaps the vehicle table contents in one transaction
func (s *SQLiteStore) ReplaceVehicles(ctx context.Context, batchID string, vehicles []models.Vehicle) error {
	return s.replace(ctx, "vehicles", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO vehicles ("+vehicleColumns+", batch_id) VALUES (?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, v := range vehicles {
			if _, err := stmt.ExecContext(ctx, v.Route, v.CurrentStatus, v.Timestamp, v.Lat, v.Lon, v.Bearing, batchID); err != nil {
				return fmt.Errorf("failed to insert vehicle %s: %w", v.Route, err)
			}
		}
		return nil
	})
}

// ReplaceStops swaps the stop table contents in one transaction
func (s *SQLiteStore) ReplaceStops(ctx context.Context, stops []models.Stop) error {
	return s.replace(ctx, "stops", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO stops ("+stopColumns+") VALUES (?, ?, ?, ?, ?) "+
				"ON CONFLICT (stopid) DO UPDATE SET stopname = excluded.stopname, stopdesc = excluded.stopdesc, lat = excluded.lat, lon = excluded.lon")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, st := range stops {
			if _, err := stmt.ExecContext(ctx, st.StopID, st.StopName, st.StopDesc, st.Lat, st.Lon); err != nil {
				return fmt.Errorf("failed to insert stop %s: %w", st.StopID, err)
			}
		}
		return nil
	})
}

// ReplaceArrivals swaps the arrival table contents in one transaction
func (s *SQLiteStore) ReplaceArrivals(ctx context.Context, batchID string, arrivals []models.StopArrival) error {
	return s.replace(ctx, "trip_arrivals", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO trip_arrivals (stopid, route, arrivaltime, batch_id) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range arrivals {
			if _, err := stmt.ExecContext(ctx, a.StopID, a.Route, a.ArrivalTime, batchID); err != nil {
				return fmt.Errorf("failed to insert arrival at %s: %w", a.StopID, err)
			}
		}
		return nil
	})
}

// DeleteArrivalsBefore removes arrivals earlier than cutoff
func (s *SQLiteStore) DeleteArrivalsBefore(ctx context.Context, cutoff int64) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.conn.ExecContext(ctx, "DELETE FROM trip_arrivals WHERE arrivaltime < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup trip_arrivals: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Counts returns the row count of every table
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.conn.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM vehicles), (SELECT COUNT(*) FROM stops), (SELECT COUNT(*) FROM trip_arrivals)").
		Scan(&c.Vehicles, &c.Stops, &c.Arrivals)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) replace(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("failed to fill %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}
