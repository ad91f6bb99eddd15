package gtfsrt

import (
	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/bussinfr/viewer/internal/models"
)

// Vehicles extracts one Vehicle per vehicle-position entity that carries a
// position. The route is the trip's route_id.
func Vehicles(feed *gtfs.FeedMessage) []models.Vehicle {
	var vehicles []models.Vehicle
	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}

		pos := vp.GetPosition()
		vehicles = append(vehicles, models.Vehicle{
			Route:         vp.GetTrip().GetRouteId(),
			Timestamp:     int64(vp.GetTimestamp()),
			CurrentStatus: int(vp.GetCurrentStatus()),
			Lat:           float64(pos.GetLatitude()),
			Lon:           float64(pos.GetLongitude()),
			Bearing:       float64(pos.GetBearing()),
		})
	}
	return vehicles
}

// Arrivals extracts the predicted arrival at each stop of every trip
// update. Stop time updates without an arrival fall back to the departure
// time; updates with neither are skipped, as are skipped stops.
func Arrivals(feed *gtfs.FeedMessage) []models.StopArrival {
	var arrivals []models.StopArrival
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		route := tu.GetTrip().GetRouteId()

		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() == "" {
				continue
			}
			if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
				continue
			}

			at := stu.GetArrival().GetTime()
			if at == 0 {
				at = stu.GetDeparture().GetTime()
			}
			if at == 0 {
				continue
			}

			arrivals = append(arrivals, models.StopArrival{
				StopID: stu.GetStopId(),
				Arrival: models.Arrival{
					Route:       route,
					ArrivalTime: at,
				},
			})
		}
	}
	return arrivals
}
