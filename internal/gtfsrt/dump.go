package gtfsrt

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Summary counts the entity kinds of a feed
type Summary struct {
	Entities    int `json:"entities"`
	TripUpdates int `json:"tripUpdates"`
	Vehicles    int `json:"vehicles"`
	Alerts      int `json:"alerts"`
}

// Summarize counts the entities of a feed by kind
func Summarize(feed *gtfs.FeedMessage) Summary {
	s := Summary{Entities: len(feed.GetEntity())}
	for _, entity := range feed.GetEntity() {
		switch {
		case entity.GetTripUpdate() != nil:
			s.TripUpdates++
		case entity.GetVehicle() != nil:
			s.Vehicles++
		case entity.GetAlert() != nil:
			s.Alerts++
		}
	}
	return s
}

// Dump writes a human readable listing of every entity in the feed, each
// followed by its protojson rendering.
func Dump(w io.Writer, feed *gtfs.FeedMessage, source string) error {
	options := protojson.MarshalOptions{Multiline: true}

	s := Summarize(feed)
	fmt.Fprintf(w, "There are %d entities in the feed %s (%d trip updates, %d vehicles, %d alerts)\n",
		s.Entities, source, s.TripUpdates, s.Vehicles, s.Alerts)

	for _, entity := range feed.GetEntity() {
		switch {
		case entity.GetTripUpdate() != nil:
			tu := entity.GetTripUpdate()
			fmt.Fprintf(w, "\n--- Trip Update ---\nEntity ID: %s\nTrip ID: %s\nRoute ID: %s\n",
				entity.GetId(), tu.GetTrip().GetTripId(), tu.GetTrip().GetRouteId())
			for _, stu := range tu.GetStopTimeUpdate() {
				fmt.Fprintf(w, "  Stop ID: %s, Arrival time (Unix): %d\n",
					stu.GetStopId(), stu.GetArrival().GetTime())
			}
		case entity.GetVehicle() != nil:
			pos := entity.GetVehicle().GetPosition()
			fmt.Fprintf(w, "\n--- Vehicle Position ---\nEntity ID: %s\nLatitude: %v\nLongitude: %v\n",
				entity.GetId(), pos.GetLatitude(), pos.GetLongitude())
		case entity.GetAlert() != nil:
			fmt.Fprintf(w, "\n--- Service Alert ---\nEntity ID: %s\n", entity.GetId())
			if tr := entity.GetAlert().GetHeaderText().GetTranslation(); len(tr) > 0 {
				fmt.Fprintln(w, tr[0].GetText())
			}
		default:
			continue
		}

		data, err := options.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to render entity %s: %w", entity.GetId(), err)
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
	return nil
}
