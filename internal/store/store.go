// Package store persists canonical incident records through a
// PostgREST-style HTTP API and reads them back for analytics runs.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Client writes and reads incident records against one table of a REST
// data API.
type Client struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a store client for the given endpoint and table.
func NewClient(baseURL, apiKey, table string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      table,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Store inserts a batch of records. Each record is attempted even when an
// earlier one fails; the combined error reports every failure. Records
// inserted before a failure stay inserted.
func (c *Client) Store(ctx context.Context, records []domain.IncidentRecord) error {
	var errs []error
	for _, rec := range records {
		if err := c.Insert(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("insert %q: %w", rec.Title, err))
		}
	}
	return errors.Join(errs...)
}

// Insert writes one record.
func (c *Client) Insert(ctx context.Context, rec domain.IncidentRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	c.logger.Debug("record stored", "title", rec.Title, "checksum", rec.Checksum())
	return nil
}

// FetchRecent reads the newest records, most recent first, for analytics
// runs.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]domain.IncidentRecord, error) {
	query := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
		"limit":  {strconv.Itoa(limit)},
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, c.table, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var records []domain.IncidentRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// Ping verifies the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{"select": {"title"}, "limit": {"1"}}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, c.table, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
