package devservice

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bussinfr/viewer/internal/models"
)

// PostgresStore keeps the service tables in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at databaseURL
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the tables if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// Vehicles returns the vehicles matching q ordered by route
func (s *PostgresStore) Vehicles(ctx context.Context, q VehicleQuery) ([]models.Vehicle, error) {
	f := filter{placeholder: postgresPlaceholder}
	f.addArea(q.Area)
	f.addIn("route", q.Routes)

	rows, err := s.pool.Query(ctx,
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
func (s *PostgresStore) Stops(ctx context.Context, area Area) ([]models.Stop, error) {
	f := filter{placeholder: postgresPlaceholder}
	f.addArea(area)

	rows, err := s.pool.Query(ctx,
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
func (s *PostgresStore) Arrivals(ctx context.Context, stopID string, notBefore int64) ([]models.Arrival, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT route, arrivaltime FROM trip_arrivals WHERE stopid = $1 AND arrivaltime >= $2 ORDER BY arrivaltime, route",
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
func (s *PostgresStore) ReplaceVehicles(ctx context.Context, batchID string, vehicles []models.Vehicle) error {
	rows := make([][]any, len(vehicles))
	for i, v := range vehicles {
		rows[i] = []any{v.Route, v.CurrentStatus, v.Timestamp, v.Lat, v.Lon, v.Bearing, batchID}
	}
	return s.replace(ctx, "vehicles",
		[]string{"route", "current_status", "reported_at", "lat", "lon", "bearing", "batch_id"}, rows)
}

// ReplaceStops swaps the stop table contents in one transaction. Duplicate
// stop ids keep the last row.
func (s *PostgresStore) ReplaceStops(ctx context.Context, stops []models.Stop) error {
	latest := make(map[string]int, len(stops))
	for i, st := range stops {
		latest[st.StopID] = i
	}

	rows := make([][]any, 0, len(latest))
	for i, st := range stops {
		if latest[st.StopID] != i {
			continue
		}
		rows = append(rows, []any{st.StopID, st.StopName, st.StopDesc, st.Lat, st.Lon})
	}
	return s.replace(ctx, "stops",
		[]string{"stopid", "stopname", "stopdesc", "lat", "lon"}, rows)
}

// ReplaceArrivals swaps the arrival table contents in one transaction
func (s *PostgresStore) ReplaceArrivals(ctx context.Context, batchID string, arrivals []models.StopArrival) error {
	rows := make([][]any, len(arrivals))
	for i, a := range arrivals {
		rows[i] = []any{a.StopID, a.Route, a.ArrivalTime, batchID}
	}
	return s.replace(ctx, "trip_arrivals",
		[]string{"stopid", "route", "arrivaltime", "batch_id"}, rows)
}

// DeleteArrivalsBefore removes arrivals earlier than cutoff
func (s *PostgresStore) DeleteArrivalsBefore(ctx context.Context, cutoff int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM trip_arrivals WHERE arrivaltime < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup trip_arrivals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Counts returns the row count of every table
func (s *PostgresStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx,
		"SELECT (SELECT COUNT(*) FROM vehicles), (SELECT COUNT(*) FROM stops), (SELECT COUNT(*) FROM trip_arrivals)").
		Scan(&c.Vehicles, &c.Stops, &c.Arrivals)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) replace(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to fill %s: %w", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}
