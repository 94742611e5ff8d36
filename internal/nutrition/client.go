// Package nutrition proxies the USDA FoodData Central API, with rate
// limiting and caching so a burst of lookups never exhausts the upstream
// hourly quota.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrNotFound reports that no food matched the lookup.
var ErrNotFound = errors.New("nutrition: food not found")

// ErrUpstream reports a FoodData Central failure after retries.
var ErrUpstream = errors.New("nutrition: upstream failure")

// Food is one entry in a FoodData Central search response.
type Food struct {
	FdcID       int64      `json:"fdcId"`
	Description string     `json:"description"`
	DataType    string     `json:"dataType"`
	BrandOwner  string     `json:"brandOwner,omitempty"`
	Nutrients   []Nutrient `json:"foodNutrients"`
}

// Nutrient is a single nutrient measurement.
type Nutrient struct {
	Name  string  `json:"nutrientName"`
	Value float64 `json:"value"`
	Unit  string  `json:"unitName"`
}

type searchResponse struct {
	Foods []Food `json:"foods"`
}

// Client calls FoodData Central. The upstream allows 1000 requests per hour,
// so the limiter holds steady at roughly 0.278 requests per second with a
// small burst.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient constructs a Client.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(0.278), 10),
		log:        log,
	}
}

// Search queries FoodData Central for foods matching query. Transient
// upstream failures retry up to three times with linear backoff.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]Food, error) {
	if pageSize < 1 || pageSize > 50 {
		pageSize = 10
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("api_key", c.apiKey)
	params.Set("dataType", "Survey (FNDDS),Foundation,Branded")
	params.Set("pageSize", strconv.Itoa(pageSize))
	reqURL := fmt.Sprintf("%s/v1/foods/search?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		body, status, err := c.get(ctx, reqURL)
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("fooddata request failed")
			lastErr = err
			sleep(ctx, time.Duration(attempt)*500*time.Millisecond)
			continue
		}
		if status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if status != http.StatusOK {
			c.log.Warn().Int("status", status).Int("attempt", attempt).Msg("fooddata non-200 response")
			lastErr = fmt.Errorf("%w: status %d", ErrUpstream, status)
			sleep(ctx, time.Duration(attempt)*500*time.Millisecond)
			continue
		}
		var parsed searchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		if len(parsed.Foods) == 0 {
			return nil, ErrNotFound
		}
		return parsed.Foods, nil
	}
	return nil, lastErr
}

// Detail fetches one food by FDC id.
func (c *Client) Detail(ctx context.Context, fdcID int64) (Food, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Food{}, fmt.Errorf("rate limiter: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/v1/food/%d?%s", c.baseURL, fdcID, params.Encode())

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return Food{}, err
	}
	if status == http.StatusNotFound {
		return Food{}, ErrNotFound
	}
	if status != http.StatusOK {
		return Food{}, fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
	var food Food
	if err := json.Unmarshal(body, &food); err != nil {
		return Food{}, fmt.Errorf("decode food response: %w", err)
	}
	return food, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "backend-grocery/1.0")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
