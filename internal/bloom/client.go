// Package bloom talks to the fuel-cell vendor API and schedules the daily pull.
package bloom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnauthorized is returned when the API rejects the credentials or token.
	ErrUnauthorized = errors.New("bloom: unauthorized")
	// ErrNoSite is returned when the account has no sites.
	ErrNoSite       = errors.New("bloom: no site found")
	errNotFound     = errors.New("bloom: not found")
)

// extractMetrics are requested from the data-extract endpoint.
var extractMetrics = []string{
	"total_output_factor",
	"efficiency",
	"energy",
	"fuel",
	"co2_reduction",
	"co2_production",
	"nox_reduction",
	"nox_production",
	"so2_reduction",
	"so2_production",
}

// Endpoints are the three absolute URLs the API is reached through.
type Endpoints struct {
	TokenURL    string
	SiteURL     string
	SiteDataURL string
}

// Credentials authenticate against the token endpoint.
type Credentials struct {
	Username string
	Password string
}

// Session carries the bearer token for one run. It is passed explicitly to every call.
type Session struct {
	Token string
}

// Client is a minimal JSON client for the fuel-cell API.
type Client struct {
	endpoints Endpoints
	client    *http.Client
}

// NewClient constructs a client with a 10s timeout.
func NewClient(endpoints Endpoints) (*Client, error) {
	if endpoints.TokenURL == "" || endpoints.SiteURL == "" || endpoints.SiteDataURL == "" {
		return nil, errors.New("bloom: token, site and site data urls are required")
	}
	endpoints.SiteDataURL = strings.TrimRight(endpoints.SiteDataURL, "/")
	return &Client{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WithHTTPClient swaps the transport; used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.client = hc
	}
	return c
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if creds.Username == "" {
		return Session{}, errors.New("bloom: empty username")
	}
	body := map[string]string{"username": creds.Username, "password": creds.Password}
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.TokenURL, "", body, &resp); err != nil {
		return Session{}, fmt.Errorf("bloom login: %w", err)
	}
	if resp.Token == "" {
		return Session{}, fmt.Errorf("bloom login: %w", ErrUnauthorized)
	}
	return Session{Token: resp.Token}, nil
}

type siteResponse struct {
	ID any `json:"id"`
}

// SiteID returns the id of the first site visible to the session.
func (c *Client) SiteID(ctx context.Context, s Session) (string, error) {
	var resp []siteResponse
	if err := c.doJSON(ctx, http.MethodGet, c.endpoints.SiteURL, s.Token, nil, &resp); err != nil {
		return "", fmt.Errorf("bloom site: %w", err)
	}
	if len(resp) == 0 {
		return "", ErrNoSite
	}
	var id string
	switch v := resp[0].ID.(type) {
	case json.Number:
		id = v.String()
	case string:
		id = v
	}
	if id == "" {
		return "", ErrNoSite
	}
	return id, nil
}

type extractRequest struct {
	Metrics      []string `json:"metrics"`
	TimeInterval string   `json:"timeinterval"`
	TimeFrame    string   `json:"timeframe"`
	From         string   `json:"from"`
	To           string   `json:"to"`
}

type extractResponse struct {
	Data []SiteData `json:"data"`
}

// DailyExtract fetches one day's metrics for siteID. A day without data returns nil.
func (c *Client) DailyExtract(ctx context.Context, s Session, siteID string, day time.Time) (*SiteData, error) {
	if siteID == "" {
		return nil, errors.New("bloom: empty site id")
	}
	date := day.UTC().Format("2006-01-02")
	body := extractRequest{
		Metrics:      extractMetrics,
		TimeInterval: "daily",
		TimeFrame:    "custom",
		From:         date,
		To:           date,
	}
	url := fmt.Sprintf("%s/%s/data-extract", c.endpoints.SiteDataURL, siteID)

	var resp extractResponse
	if err := c.doJSON(ctx, http.MethodPost, url, s.Token, body, &resp); err != nil {
		return nil, fmt.Errorf("bloom data extract %s: %w", date, err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return &resp.Data[0], nil
}

func (c *Client) doJSON(ctx context.Context, method, url, token string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("bloom: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}
