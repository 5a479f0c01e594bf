package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

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

type LoginResult struct {
	Token string `json:"token"`
	Team  struct {
		TeamID   int64  `json:"team_id"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Industry string `json:"industry"`
		IsAdmin  bool   `json:"is_admin"`
	} `json:"team"`
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"username": username,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) GameStatus(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/status", "", nil, &out, "")
	return out, err
}

func (c *Client) Team(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/team", token, nil, &out, "")
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard", token, nil, &out, "")
	return out, err
}

func (c *Client) Produce(ctx context.Context, token string, quantity int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/production", token, map[string]any{
		"quantity": quantity,
	}, &out, idem)
	return out, err
}

func (c *Client) ProductionPlan(ctx context.Context, token string, quantity int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/production/plan?quantity=%d", quantity), token, nil, &out, "")
	return out, err
}

func (c *Client) ProductionHistory(ctx context.Context, token string, limit int) (map[string]any, error) {
	path := "/v1/production"
	if limit > 0 {
		path = fmt.Sprintf("/v1/production?limit=%d", limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out, "")
	return out, err
}

func (c *Client) ListOffers(ctx context.Context, token, industry string) (map[string]any, error) {
	path := "/v1/marketplace/offers"
	if industry != "" {
		path += "?industry=" + url.QueryEscape(industry)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out, "")
	return out, err
}

func (c *Client) MyOffers(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/marketplace/offers/mine", token, nil, &out, "")
	return out, err
}

func (c *Client) CreateOffer(ctx context.Context, token string, quantity, unitPrice int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/marketplace/offers", token, map[string]any{
		"quantity":   quantity,
		"unit_price": unitPrice,
	}, &out, idem)
	return out, err
}

func (c *Client) AcceptOffer(ctx context.Context, token string, offerID, quantity int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/marketplace/offers/%d/accept", offerID), token, map[string]any{
		"quantity": quantity,
	}, &out, idem)
	return out, err
}

func (c *Client) UpdateOfferPrice(ctx context.Context, token string, offerID, unitPrice int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/marketplace/offers/%d/price", offerID), token, map[string]any{
		"unit_price": unitPrice,
	}, &out, idem)
	return out, err
}

func (c *Client) CancelOffer(ctx context.Context, token string, offerID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/marketplace/offers/%d/cancel", offerID), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) IncomingTrades(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/trades/incoming", token, nil, &out, "")
	return out, err
}

func (c *Client) OutgoingTrades(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/trades/outgoing", token, nil, &out, "")
	return out, err
}

func (c *Client) CreateTrade(ctx context.Context, token string, counterpartyID, quantity, unitPrice int64, secret bool, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trades", token, map[string]any{
		"counterparty_id": counterpartyID,
		"quantity":        quantity,
		"unit_price":      unitPrice,
		"secret":          secret,
	}, &out, idem)
	return out, err
}

func (c *Client) AcceptTrade(ctx context.Context, token string, tradeID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/accept", tradeID), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) RejectTrade(ctx context.Context, token string, tradeID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/reject", tradeID), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) CancelTrade(ctx context.Context, token string, tradeID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/cancel", tradeID), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) AdminTeams(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/teams", token, nil, &out, "")
	return out, err
}

func (c *Client) AdminTrades(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/trades", token, nil, &out, "")
	return out, err
}

func (c *Client) AdminGifts(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/gifts", token, nil, &out, "")
	return out, err
}

func (c *Client) AdminGiftEligible(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/gifts/eligible", token, nil, &out, "")
	return out, err
}

func (c *Client) AdminGrantGift(ctx context.Context, token string, teamID, quantity int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/gifts", token, map[string]any{
		"team_id":  teamID,
		"quantity": quantity,
	}, &out, idem)
	return out, err
}

func (c *Client) AdminSetStatus(ctx context.Context, token, status, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/status", token, map[string]any{
		"status": status,
	}, &out, idem)
	return out, err
}

func (c *Client) AdminAdjustBalance(ctx context.Context, token string, teamID, delta int64, reason, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/admin/teams/%d/balance", teamID), token, map[string]any{
		"delta":  delta,
		"reason": reason,
	}, &out, idem)
	return out, err
}

func (c *Client) AdminAdjustInventory(ctx context.Context, token string, teamID int64, industry string, raw bool, delta int64, reason, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/admin/teams/%d/inventory", teamID), token, map[string]any{
		"industry": industry,
		"raw":      raw,
		"delta":    delta,
		"reason":   reason,
	}, &out, idem)
	return out, err
}

func (c *Client) AdminReallocate(ctx context.Context, token string, min, max int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/raw/reallocate", token, map[string]any{
		"min": min,
		"max": max,
	}, &out, "")
	return out, err
}

// AdminExport downloads the CSV archive to w.
func (c *Client) AdminExport(ctx context.Context, token string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/admin/export", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
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
