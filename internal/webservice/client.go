package webservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bussinfr/viewer/internal/geo"
	"github.com/bussinfr/viewer/internal/models"
	"github.com/bussinfr/viewer/internal/telemetry"
)

// Endpoint paths relative to the service base URL
const (
	VehicleEndpoint = "vehicleService"
	StopEndpoint    = "busStopService"
	TripEndpoint    = "tripService"
)

// Client fetches vehicles, stops and arrivals from the transit web service
type Client struct {
	baseURL string
	client  *http.Client
	metrics *telemetry.Metrics
}

// NewClient creates a client for the service rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, metrics *telemetry.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

// Vehicles fetches the vehicles inside bbox. routesCSV restricts the result
// to the listed route codes; empty means all routes.
func (c *Client) Vehicles(ctx context.Context, bbox geo.BBox, routesCSV string) ([]models.Vehicle, error) {
	params := bboxParams(bbox)
	if routesCSV != "" {
		params.Set("routesCSV", routesCSV)
	}

	var vehicles []models.Vehicle
	if err := c.getJSON(ctx, VehicleEndpoint, params, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// Stops fetches the stops inside bbox
func (c *Client) Stops(ctx context.Context, bbox geo.BBox) ([]models.Stop, error) {
	var stops []models.Stop
	if err := c.getJSON(ctx, StopEndpoint, bboxParams(bbox), &stops); err != nil {
		return nil, err
	}
	return stops, nil
}

// Arrivals fetches the upcoming arrivals for one stop
func (c *Client) Arrivals(ctx context.Context, stopID string) ([]models.Arrival, error) {
	params := url.Values{}
	params.Set("stopID", stopID)

	var arrivals []models.Arrival
	if err := c.getJSON(ctx, TripEndpoint, params, &arrivals); err != nil {
		return nil, err
	}
	return arrivals, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.ObserveRequest(endpoint, outcome, time.Since(start))
	}()

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		outcome = "status"
		_, _ = io.Copy(io.Discard, resp.Body)
		return &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		outcome = "parse"
		return &ParseError{Endpoint: endpoint, Err: err}
	}
	if isJSONNull(body) {
		outcome = "parse"
		return &ParseError{Endpoint: endpoint, Err: errors.New("expected a JSON array, got null")}
	}

	return nil
}

func isJSONNull(body []byte) bool {
	return strings.TrimSpace(string(body)) == "null"
}

func bboxParams(bbox geo.BBox) url.Values {
	params := url.Values{}
	params.Set("minLat", formatCoord(bbox.MinLat))
	params.Set("minLon", formatCoord(bbox.MinLon))
	params.Set("maxLat", formatCoord(bbox.MaxLat))
	params.Set("maxLon", formatCoord(bbox.MaxLon))
	return params
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
