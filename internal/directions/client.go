// Package directions fetches walking or driving routes to a store from an
// external routing service and decodes the returned polyline for map display.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNoRoute reports that the routing service found no path.
var ErrNoRoute = errors.New("directions: no route found")

// Route is a decoded routing result.
type Route struct {
	DistanceMeters  int64    `json:"distanceMeters"`
	DurationSeconds int64    `json:"durationSeconds"`
	Points          []LatLng `json:"points"`
}

type apiResponse struct {
	Routes []struct {
		DistanceMeters int64  `json:"distanceMeters"`
		Duration       string `json:"duration"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// Client calls the routing service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient constructs a Client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Route computes a route between two coordinates.
func (c *Client) Route(ctx context.Context, from, to LatLng, mode string) (Route, error) {
	if mode == "" {
		mode = "driving"
	}
	params := url.Values{}
	params.Set("origin", formatLatLng(from))
	params.Set("destination", formatLatLng(to))
	params.Set("mode", mode)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/routes?"+params.Encode(), nil)
	if err != nil {
		return Route{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("call routing service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Route{}, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("routing service returned status %d", resp.StatusCode)
	}
	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Route{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Routes) == 0 {
		return Route{}, ErrNoRoute
	}
	best := parsed.Routes[0]
	points, err := DecodePolyline(best.Polyline.EncodedPolyline)
	if err != nil {
		return Route{}, err
	}
	return Route{
		DistanceMeters:  best.DistanceMeters,
		DurationSeconds: parseDurationSeconds(best.Duration),
		Points:          points,
	}, nil
}

// parseDurationSeconds parses the service's "123s" duration strings.
func parseDurationSeconds(s string) int64 {
	if len(s) > 0 && s[len(s)-1] == 's' {
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatLatLng(p LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
