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

	"boardswap/internal/market"
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

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        market.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email, password, address string) (market.User, error) {
	var out market.User
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
		"address":  address,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken, name, password, address string) error {
	return c.jsonRequest(ctx, http.MethodPatch, "/v1/me", accessToken, map[string]any{
		"name":     name,
		"password": password,
		"address":  address,
	}, nil)
}

func (c *Client) SearchGames(ctx context.Context, accessToken, name string) ([]market.Game, error) {
	path := "/v1/games"
	if strings.TrimSpace(name) != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	var out struct {
		Games []market.Game `json:"games"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out.Games, err
}

func (c *Client) MyGames(ctx context.Context, accessToken string) ([]market.Game, error) {
	var out struct {
		Games []market.Game `json:"games"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games?mine=1", accessToken, nil, &out)
	return out.Games, err
}

func (c *Client) AddGame(ctx context.Context, accessToken string, g market.GameAttrs) (market.Game, error) {
	var out market.Game
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", accessToken, map[string]any{
		"name":           g.Name,
		"publisher":      g.Publisher,
		"year_published": g.YearPublished,
		"system":         g.System,
		"condition":      g.Condition,
	}, &out)
	return out, err
}

func (c *Client) DeleteGame(ctx context.Context, accessToken string, gameID int64) error {
	return c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/games/%d", gameID), accessToken, nil, nil)
}

func (c *Client) ProposeOffer(ctx context.Context, accessToken string, offeredGameID, desiredGameID int64) (market.TradeOffer, error) {
	var out market.TradeOffer
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trades", accessToken, map[string]any{
		"offered_game_id": offeredGameID,
		"desired_game_id": desiredGameID,
	}, &out)
	return out, err
}

func (c *Client) ReceivedOffers(ctx context.Context, accessToken string) ([]market.TradeOffer, error) {
	var out struct {
		Offers []market.TradeOffer `json:"offers"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/trades/received", accessToken, nil, &out)
	return out.Offers, err
}

func (c *Client) AcceptOffer(ctx context.Context, accessToken string, tradeID int64) (market.TradeOffer, error) {
	var out market.TradeOffer
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/accept", tradeID), accessToken, nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any) error {
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
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
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
