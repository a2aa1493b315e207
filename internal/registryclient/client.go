// Package registryclient queries a remote registry over HTTP. It serves the
// read-model backfill and the ledger's fallback for auctions it has not seen.
package registryclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/models"
)

// DefaultTimeout bounds a single registry request
const DefaultTimeout = 5 * time.Second

// Client talks to the registry's /api/auctions endpoints
type Client struct {
	baseURL string
	http    *http.Client
}

// envelope mirrors utils.JSONResponse
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// New creates a Client for baseURL. A nil httpClient gets DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// AuctionsSince lists auctions updated strictly after since, oldest first.
func (c *Client) AuctionsSince(ctx context.Context, since time.Time) ([]models.Auction, error) {
	u := c.baseURL + "/api/auctions"
	if !since.IsZero() {
		u += "?date=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var out []models.Auction
	if err := c.get(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("registryclient: list since %s: %w", since.Format(time.RFC3339Nano), err)
	}
	return out, nil
}

// GetAuction fetches one auction; an unknown id is ErrNotFound.
func (c *Client) GetAuction(ctx context.Context, id string) (models.Auction, error) {
	var out models.Auction
	if err := c.get(ctx, c.baseURL+"/api/auctions/"+url.PathEscape(id), &out); err != nil {
		return models.Auction{}, fmt.Errorf("registryclient: get %s: %w", id, err)
	}
	return out, nil
}

// get fetches u and decodes the data field of the response into out.
// Unreachable hosts and 5xx answers are ErrTransient.
func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", auctionerrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return auctionerrors.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: registry answered %d %s", auctionerrors.ErrTransient, resp.StatusCode, env.Message)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("registry answered %d %s", resp.StatusCode, env.Message)
	case decodeErr != nil:
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
