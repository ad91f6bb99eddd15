package devservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

type fakeFeeds struct {
	feeds map[string]*gtfs.FeedMessage
}

func (f *fakeFeeds) Fetch(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	feed, ok := f.feeds[url]
	if !ok {
		return nil, errors.New("feed returned status 503")
	}
	return feed, nil
}

func vehicleFeed() *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("1"),
				Vehicle: &gtfs.VehiclePosition{
					Trip:      &gtfs.TripDescriptor{RouteId: proto.String("WEST")},
					Timestamp: proto.Uint64(uint64(seedTime.Unix())),
					Position:  &gtfs.Position{Latitude: proto.Float32(39.5), Longitude: proto.Float32(-105), Bearing: proto.Float32(90)},
				},
			},
		},
	}
}

func tripFeed() *gtfs.FeedMessage {
	at := func(d time.Duration) *gtfs.TripUpdate_StopTimeEvent {
		return &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(seedTime.Add(d).Unix())}
	}
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("t"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{RouteId: proto.String("NRTH")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						{StopId: proto.String("34343"), Arrival: at(-30 * time.Minute)},
						{StopId: proto.String("34343"), Arrival: at(3 * time.Minute)},
						{StopId: proto.String("17724"), Arrival: at(9 * time.Minute)},
					},
				},
			},
		},
	}
}

func TestIngest(t *testing.T) {
	store := seededStore(t)
	feeds := &fakeFeeds{feeds: map[string]*gtfs.FeedMessage{
		"vehicles": vehicleFeed(),
		"trips":    tripFeed(),
	}}

	ing := NewIngester(store, feeds, "vehicles", "trips", 10*time.Minute)
	ing.now = func() time.Time { return seedTime }

	if err := ing.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	counts, err := store.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// stops are untouched, the arrival 30 minutes ago is past retention
	want := Counts{Vehicles: 1, Stops: 22, Arrivals: 2}
	if counts != want {
		t.Errorf("Counts() = %+v, expected %+v", counts, want)
	}

	vehicles, err := store.Vehicles(context.Background(), VehicleQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(vehicles) != 1 || vehicles[0].Route != "WEST" || vehicles[0].Bearing != 90 {
		t.Errorf("unexpected vehicles: %+v", vehicles)
	}
}

func TestIngestTripFeedFailureKeepsArrivals(t *testing.T) {
	store := seededStore(t)
	feeds := &fakeFeeds{feeds: map[string]*gtfs.FeedMessage{"vehicles": vehicleFeed()}}

	ing := NewIngester(store, feeds, "vehicles", "trips", time.Hour)
	ing.now = func() time.Time { return seedTime }

	if err := ing.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	counts, err := store.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts.Arrivals != 16 {
		t.Errorf("expected seeded arrivals to survive, got %d", counts.Arrivals)
	}
}

func TestIngestVehicleFeedFailure(t *testing.T) {
	store := seededStore(t)
	ing := NewIngester(store, &fakeFeeds{}, "vehicles", "", time.Hour)

	if err := ing.Ingest(context.Background()); err == nil {
		t.Fatal("expected error when the vehicle feed is down")
	}

	counts, err := store.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts.Vehicles != 20 {
		t.Errorf("vehicles should be untouched, got %d", counts.Vehicles)
	}
}
