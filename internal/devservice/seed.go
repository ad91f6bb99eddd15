package devservice

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bussinfr/viewer/internal/models"
)

// Seed stop ids carrying arrivals
const (
	SeedStopBusy  = "STP01"
	SeedStopQuiet = "STP02"
)

// SeedData is the synthetic data set used for local development: 20
// vehicles BUS00..BUS19 and 20 stops 0000..0019 placed diagonally across
// (0,0), plus arrivals at two extra stops.
func SeedData(now time.Time) ([]models.Vehicle, []models.Stop, []models.StopArrival) {
	vehicles := make([]models.Vehicle, 20)
	stops := make([]models.Stop, 0, 22)
	for i := 0; i < 20; i++ {
		vehicles[i] = models.Vehicle{
			Route:         fmt.Sprintf("BUS%02d", i),
			Timestamp:     now.Unix(),
			CurrentStatus: models.StatusInMotion,
			Lat:           float64(i - 10),
			Lon:           float64(10 - i),
			Bearing:       float64(i) * 0.5,
		}

		id := fmt.Sprintf("%04d", i)
		stops = append(stops, models.Stop{
			StopID:   id,
			StopName: "Bus stop " + id,
			StopDesc: "Description of stop " + id,
			Lat:      float64(i - 10),
			Lon:      float64(10 - i),
		})
	}
	stops = append(stops,
		models.Stop{StopID: SeedStopBusy, StopName: "Busy stop", StopDesc: "Served by eleven routes", Lat: 0.5, Lon: 0.5},
		models.Stop{StopID: SeedStopQuiet, StopName: "Quiet stop", StopDesc: "Served by five routes", Lat: -0.5, Lon: 0.5},
	)

	var arrivals []models.StopArrival
	add := func(stopID string, n int) {
		for i := 0; i < n; i++ {
			arrivals = append(arrivals, models.StopArrival{
				StopID: stopID,
				Arrival: models.Arrival{
					Route:       fmt.Sprintf("BUS%02d", i),
					ArrivalTime: now.Add(time.Duration(i+1) * 2 * time.Minute).Unix(),
				},
			})
		}
	}
	add(SeedStopBusy, 11)
	add(SeedStopQuiet, 5)

	return vehicles, stops, arrivals
}

// Seed replaces every table with SeedData
func Seed(ctx context.Context, store Store, now time.Time) error {
	vehicles, stops, arrivals := SeedData(now)
	batchID := uuid.New().String()

	if err := store.ReplaceVehicles(ctx, batchID, vehicles); err != nil {
		return fmt.Errorf("failed to seed vehicles: %w", err)
	}
	if err := store.ReplaceStops(ctx, stops); err != nil {
		return fmt.Errorf("failed to seed stops: %w", err)
	}
	if err := store.ReplaceArrivals(ctx, batchID, arrivals); err != nil {
		return fmt.Errorf("failed to seed arrivals: %w", err)
	}

	log.Printf("Seed: loaded %d vehicles, %d stops, %d arrivals (batch %s)",
		len(vehicles), len(stops), len(arrivals), batchID)
	return nil
}
