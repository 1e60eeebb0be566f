// Package tvdb is the client for TheTVDB's REST API: login, token
// refresh, series search, and paginated episode listing, all through a
// shared request helper that attaches the bearer token and rate-limits
// outbound calls.
package tvdb

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

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hnipps/seriesvault/pkg/models"
)

// Logger is the subset of svlog.Logger the client needs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Client talks to TheTVDB's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     Logger

	token string
}

// New creates a Client. delay paces outbound calls via a token bucket: at
// most one request every delay.
func New(baseURL string, timeout, delay time.Duration, logger Logger) *Client {
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

// SetToken installs a bearer token obtained from Login/RefreshToken (or
// loaded from credentials.json) for subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token and decodes its expiry.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return models.Session{}, fmt.Errorf("marshal credentials: %w", err)
	}

	resp, err := c.makeRequest(ctx, "POST", "/login", bytes.NewReader(body))
	if err != nil {
		return models.Session{}, fmt.Errorf("transport: login: %w", err)
	}
	defer resp.Body.Close()

	var lr loginResponse
	if err := decodeOrError(resp, &lr); err != nil {
		return models.Session{}, err
	}

	c.token = lr.Token
	return sessionFromToken(lr.Token)
}

// RefreshToken exchanges the current bearer token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context) (models.Session, error) {
	resp, err := c.makeRequest(ctx, "GET", "/refresh_token", nil)
	if err != nil {
		return models.Session{}, fmt.Errorf("transport: refresh_token: %w", err)
	}
	defer resp.Body.Close()

	var lr loginResponse
	if err := decodeOrError(resp, &lr); err != nil {
		return models.Session{}, err
	}

	c.token = lr.Token
	return sessionFromToken(lr.Token)
}

// sessionFromToken decodes (never verifies — the client holds no signing
// key) the JWT's exp claim so the caller can proactively refresh instead
// of waiting for a 401.
func sessionFromToken(token string) (models.Session, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return models.Session{Token: token}, nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return models.Session{Token: token}, nil
	}
	return models.Session{Token: token, ExpiresAt: exp.Time}, nil
}

type searchResponse struct {
	Data []models.Series `json:"data"`
}

// SearchSeries searches the catalog by name.
func (c *Client) SearchSeries(ctx context.Context, name string) ([]models.Series, error) {
	path := fmt.Sprintf("/search/series?name=%s", url.QueryEscape(name))
	resp, err := c.makeRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: search series: %w", err)
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := decodeOrError(resp, &sr); err != nil {
		return nil, err
	}
	return sr.Data, nil
}

type seriesResponse struct {
	Data models.Series `json:"data"`
}

// GetSeries fetches a single series by ID.
func (c *Client) GetSeries(ctx context.Context, id uint32) (models.Series, error) {
	resp, err := c.makeRequest(ctx, "GET", fmt.Sprintf("/series/%d", id), nil)
	if err != nil {
		return models.Series{}, fmt.Errorf("transport: get series: %w", err)
	}
	defer resp.Body.Close()

	var sr seriesResponse
	if err := decodeOrError(resp, &sr); err != nil {
		return models.Series{}, err
	}
	return sr.Data, nil
}

type episodesResponse struct {
	Data  []models.Episode `json:"data"`
	Links struct {
		Next *int `json:"next"`
		Last *int `json:"last"`
	} `json:"links"`
}

// GetEpisodes fetches every episode of a series, following pagination:
// page 1 synchronously (to learn the last page number), then pages
// 2..=last concurrently via errgroup, concatenated in page order.
func (c *Client) GetEpisodes(ctx context.Context, seriesID uint32) ([]models.Episode, error) {
	first, err := c.getEpisodePage(ctx, seriesID, 1)
	if err != nil {
		return nil, err
	}

	all := append([]models.Episode(nil), first.Data...)
	if first.Links.Last == nil || *first.Links.Last <= 1 {
		return all, nil
	}
	last := *first.Links.Last

	pages := make([][]models.Episode, last+1)
	pages[1] = first.Data

	g, gctx := errgroup.WithContext(ctx)
	for page := 2; page <= last; page++ {
		page := page
		g.Go(func() error {
			resp, err := c.getEpisodePage(gctx, seriesID, page)
			if err != nil {
				return err
			}
			pages[page] = resp.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all = all[:0]
	for page := 1; page <= last; page++ {
		all = append(all, pages[page]...)
	}
	return all, nil
}

func (c *Client) getEpisodePage(ctx context.Context, seriesID uint32, page int) (episodesResponse, error) {
	path := fmt.Sprintf("/series/%d/episodes?page=%d", seriesID, page)
	resp, err := c.makeRequest(ctx, "GET", path, nil)
	if err != nil {
		return episodesResponse{}, fmt.Errorf("transport: get episodes page %d: %w", page, err)
	}
	defer resp.Body.Close()

	var er episodesResponse
	if err := decodeOrError(resp, &er); err != nil {
		return episodesResponse{}, err
	}
	return er, nil
}

// errorEnvelope is the non-2xx response shape; when absent the raw body
// is treated as the error text.
type errorEnvelope struct {
	Error string `json:"Error"`
}

// decodeOrError decodes resp.Body into v on 2xx, or builds a RemoteHTTP
// error from the error envelope (or raw body) otherwise.
func decodeOrError(resp *http.Response, v interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)

		var env errorEnvelope
		if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
			return fmt.Errorf("remote http %d: %s", resp.StatusCode, env.Error)
		}
		return fmt.Errorf("remote http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("wire decode: %w", err)
	}
	return nil
}

// makeRequest rate-limits then issues an HTTP request with the bearer
// token attached.
func (c *Client) makeRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("%s %s", method, path)
	return c.httpClient.Do(req)
}
