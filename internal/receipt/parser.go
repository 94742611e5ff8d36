// Package receipt ingests photographed till receipts: raw OCR text is sent
// to an external parser service, and the parsed lines are matched back to
// the catalog so each recognized item records a fresh price observation.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrParse reports that the parser service could not make sense of the text.
var ErrParse = errors.New("receipt: unparseable receipt")

// Parsed is the parser service response.
type Parsed struct {
	StoreName string       `json:"store_name"`
	Address   string       `json:"address"`
	Items     []ParsedItem `json:"items"`
}

// ParsedItem is one recognized receipt line. Price is in major currency
// units as the parser emits it.
type ParsedItem struct {
	ItemName string  `json:"item_name"`
	Price    float64 `json:"price"`
}

// PriceCents converts the parsed price to minor units.
func (p ParsedItem) PriceCents() int64 {
	return int64(math.Round(p.Price * 100))
}

// Parser calls the external receipt parsing service.
type Parser struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewParser constructs a Parser.
func NewParser(baseURL, apiKey string) *Parser {
	return &Parser{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Parse sends raw receipt text to the parser service.
func (p *Parser) Parse(ctx context.Context, rawText string) (Parsed, error) {
	payload, err := json.Marshal(map[string]string{"text": rawText})
	if err != nil {
		return Parsed{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/parse", bytes.NewReader(payload))
	if err != nil {
		return Parsed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Parsed{}, fmt.Errorf("call parser: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return Parsed{}, ErrParse
	}
	if resp.StatusCode != http.StatusOK {
		return Parsed{}, fmt.Errorf("parser returned status %d", resp.StatusCode)
	}
	var parsed Parsed
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Parsed{}, fmt.Errorf("decode parser response: %w", err)
	}
	if parsed.StoreName == "" && len(parsed.Items) == 0 {
		return Parsed{}, ErrParse
	}
	return parsed, nil
}
