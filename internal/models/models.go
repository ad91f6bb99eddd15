package models

// StatusInMotion is the current_status value of a vehicle in transit
// (GTFS-RT VehicleStopStatus IN_TRANSIT_TO).
const StatusInMotion = 2

// Vehicle is one vehicle position as served by /vehicleService
type Vehicle struct {
	Route         string  `json:"route"`
	Timestamp     int64   `json:"timestamp"`
	CurrentStatus int     `json:"current_status"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Bearing       float64 `json:"bearing"`
}

// InMotion reports whether the vehicle is moving between stops
func (v Vehicle) InMotion() bool {
	return v.CurrentStatus == StatusInMotion
}

// Stop is one bus stop as served by /busStopService
type Stop struct {
	StopID   string  `json:"stopid"`
	StopName string  `json:"stopname"`
	StopDesc string  `json:"stopdesc"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Arrival is one predicted arrival as served by /tripService
type Arrival struct {
	Route       string `json:"route"`
	ArrivalTime int64  `json:"arrivaltime"`
}

// StopArrival is an Arrival bound to the stop it is predicted for
type StopArrival struct {
	StopID string
	Arrival
}
