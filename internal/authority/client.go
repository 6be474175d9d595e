// Package authority is the builder's client for the roster authority:
// the system of record for catalogue data, point math and validation.
// The builder mirrors its responses; it never argues with them.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/veletaris/rosterforge/internal/catalog"
	"github.com/veletaris/rosterforge/internal/roster"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

const catalogTTL = 5 * time.Minute

// Request/response shapes on the authority wire.
type CreateRosterRequest struct {
	Name        string `json:"name"`
	PointsLimit int    `json:"points_limit"`
}

type AddDetachmentRequest struct {
	DetachmentID string `json:"detachment_id"`
}

type AddEntryRequest struct {
	UnitID   string              `json:"unit_id"`
	Quantity int                 `json:"quantity"`
	Upgrades []catalog.Selection `json:"upgrades,omitempty"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type DoctrineRequest struct {
	Doctrine string `json:"doctrine"`
}

// Verdict is the validation result shape.
type Verdict struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Error is a non-2xx authority reply, surfaced to the caller so the
// shell can show an honest message and re-fetch to correct the mirror.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("authority status %d: %s", e.Status, e.Message)
}

type Client struct {
	base string

	// catalogue cache: the snapshot is large and effectively static
	catMu   sync.RWMutex
	cat     *catalog.Catalog
	catTime time.Time
}

func NewClient(baseURL string) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/")}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Catalog fetches and caches the full catalogue snapshot.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	c.catMu.RLock()
	if c.cat != nil && time.Since(c.catTime) < catalogTTL {
		cat := c.cat
		c.catMu.RUnlock()
		return cat, nil
	}
	c.catMu.RUnlock()

	var snap catalog.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &snap); err != nil {
		return nil, err
	}
	cat := catalog.New(snap)

	c.catMu.Lock()
	c.cat = cat
	c.catTime = time.Now()
	c.catMu.Unlock()
	return cat, nil
}

func (c *Client) CreateRoster(ctx context.Context, name string, pointsLimit int) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodPost, "/api/rosters", CreateRosterRequest{Name: name, PointsLimit: pointsLimit}, &r)
	return r, err
}

func (c *Client) GetRoster(ctx context.Context, id string) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodGet, "/api/rosters/"+id, nil, &r)
	return r, err
}

func (c *Client) DeleteRoster(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/rosters/"+id, nil, nil)
}

func (c *Client) AddDetachment(ctx context.Context, rosterID, templateID string) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodPost, "/api/rosters/"+rosterID+"/detachments",
		AddDetachmentRequest{DetachmentID: templateID}, &r)
	return r, err
}

func (c *Client) RemoveDetachment(ctx context.Context, rosterID, detachmentID string) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodDelete, "/api/rosters/"+rosterID+"/detachments/"+detachmentID, nil, &r)
	return r, err
}

func (c *Client) AddEntry(ctx context.Context, rosterID, detachmentID string, req AddEntryRequest) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodPost, "/api/rosters/"+rosterID+"/detachments/"+detachmentID+"/entries", req, &r)
	return r, err
}

func (c *Client) RemoveEntry(ctx context.Context, rosterID, detachmentID, entryID string) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodDelete, "/api/rosters/"+rosterID+"/detachments/"+detachmentID+"/entries/"+entryID, nil, &r)
	return r, err
}

func (c *Client) UpdateQuantity(ctx context.Context, rosterID, detachmentID, entryID string, quantity int) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodPatch, "/api/rosters/"+rosterID+"/detachments/"+detachmentID+"/entries/"+entryID,
		QuantityRequest{Quantity: quantity}, &r)
	return r, err
}

func (c *Client) SetDoctrine(ctx context.Context, rosterID, doctrine string) (roster.Roster, error) {
	var r roster.Roster
	err := c.do(ctx, http.MethodPut, "/api/rosters/"+rosterID+"/doctrine", DoctrineRequest{Doctrine: doctrine}, &r)
	return r, err
}

func (c *Client) Validate(ctx context.Context, rosterID string) (Verdict, error) {
	var v Verdict
	err := c.do(ctx, http.MethodPost, "/api/rosters/"+rosterID+"/validate", nil, &v)
	return v, err
}

func (c *Client) Export(ctx context.Context, rosterID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/rosters/"+rosterID+"/export", nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	b, err := io.ReadAll(resp.Body)
	return string(b), err
}
