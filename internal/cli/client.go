package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the read-only market API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.jsonRequest(ctx, "/healthz", &out)
}

func (c *Client) Catalog(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, "/v1/catalog", &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context, page int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, "/v1/market/overview?page="+strconv.Itoa(page), &out)
	return out, err
}

func (c *Client) ItemDetail(ctx context.Context, itemType, itemID string, edition int64) (map[string]any, error) {
	path := "/v1/market/items/" + url.PathEscape(itemType) + "/" + url.PathEscape(itemID)
	if edition != 0 {
		path += "?edition=" + strconv.FormatInt(edition, 10)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, path, &out)
	return out, err
}

func (c *Client) PlayerOrders(ctx context.Context, userID string, page int) (map[string]any, error) {
	path := "/v1/players/" + url.PathEscape(userID) + "/orders?page=" + strconv.Itoa(page)
	var out map[string]any
	err := c.jsonRequest(ctx, path, &out)
	return out, err
}

func (c *Client) PlayerProfile(ctx context.Context, userID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, "/v1/players/"+url.PathEscape(userID)+"/profile", &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
