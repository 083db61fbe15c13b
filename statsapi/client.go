package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/valorant-arena/metrics"
	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured   = errors.New("stats api key is not configured")
	ErrInvalidRegion   = errors.New("invalid region")
	ErrAccountNotFound = errors.New("riot account not found")
)

const maxBodySize = 4 << 20

// Regions accepted by the upstream API.
var Regions = []string{"ap", "br", "eu", "kr", "latam", "na"}

func ValidRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}

// Response is an upstream reply passed through untouched.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client talks to the HenrikDev Valorant API with a server-held key. Every call waits
// on a shared token bucket so the key's quota is never exceeded.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    metrics.Metrics
}

type Config struct {
	BaseURL string
	APIKey  string
	// RPS is the sustained outbound request rate.
	RPS float64
}

func NewClient(cfg Config, m metrics.Metrics) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		metrics:    m,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Account fetches /v1/account/{name}/{tag}.
func (c *Client) Account(ctx context.Context, name, tag string) (*Response, error) {
	return c.get(ctx, "account", fmt.Sprintf("/v1/account/%s/%s", url.PathEscape(name), url.PathEscape(tag)), nil)
}

// MMR fetches /v2/mmr/{region}/{name}/{tag}.
func (c *Client) MMR(ctx context.Context, region, name, tag string) (*Response, error) {
	if !ValidRegion(region) {
		return nil, ErrInvalidRegion
	}
	return c.get(ctx, "mmr", fmt.Sprintf("/v2/mmr/%s/%s/%s", region, url.PathEscape(name), url.PathEscape(tag)), nil)
}

// Matches fetches /v3/matches/{region}/{name}/{tag}. size <= 0 leaves the upstream default.
func (c *Client) Matches(ctx context.Context, region, name, tag string, size int) (*Response, error) {
	if !ValidRegion(region) {
		return nil, ErrInvalidRegion
	}
	q := url.Values{}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return c.get(ctx, "matches", fmt.Sprintf("/v3/matches/%s/%s/%s", region, url.PathEscape(name), url.PathEscape(tag)), q)
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("stats api rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stats api request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncStatsProxyRequest(endpoint, 0)
		return nil, fmt.Errorf("stats api %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read stats api %s response: %w", endpoint, err)
	}
	c.metrics.IncStatsProxyRequest(endpoint, resp.StatusCode)
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// SplitRiotID splits "Name#TAG".
func SplitRiotID(riotID string) (name, tag string, ok bool) {
	i := strings.LastIndex(riotID, "#")
	if i <= 0 || i == len(riotID)-1 {
		return "", "", false
	}
	return riotID[:i], riotID[i+1:], true
}

type accountEnvelope struct {
	Data struct {
		Name   string `json:"name"`
		Tag    string `json:"tag"`
		Region string `json:"region"`
	} `json:"data"`
}

// Account is the part of the account payload the platform stores.
type Account struct {
	Name   string
	Tag    string
	Region string
}

// LookupAccount resolves a Riot ID. A 404 from upstream yields ErrAccountNotFound.
func (c *Client) LookupAccount(ctx context.Context, riotID string) (*Account, error) {
	name, tag, ok := SplitRiotID(riotID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	resp, err := c.Account(ctx, name, tag)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrAccountNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("stats api account lookup returned %d", resp.StatusCode)
	}
	var env accountEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode account payload: %w", err)
	}
	return &Account{Name: env.Data.Name, Tag: env.Data.Tag, Region: env.Data.Region}, nil
}

type mmrEnvelope struct {
	Data struct {
		CurrentData struct {
			CurrentTierPatched string `json:"currenttierpatched"`
		} `json:"current_data"`
	} `json:"data"`
}

// CurrentTier returns the competitive tier name, e.g. "Diamond 2".
func (c *Client) CurrentTier(ctx context.Context, region, riotID string) (string, error) {
	name, tag, ok := SplitRiotID(riotID)
	if !ok {
		return "", ErrAccountNotFound
	}
	resp, err := c.MMR(ctx, region, name, tag)
	if err != nil {
		return "", err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrAccountNotFound
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("stats api mmr lookup returned %d", resp.StatusCode)
	}
	var env mmrEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return "", fmt.Errorf("failed to decode mmr payload: %w", err)
	}
	tier := env.Data.CurrentData.CurrentTierPatched
	if tier == "" {
		tier = "Unrated"
	}
	return tier, nil
}
