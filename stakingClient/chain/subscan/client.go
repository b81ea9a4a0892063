// Package subscan reads reward and slash history from a Subscan explorer API.
package subscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/pushchain/easystake/stakingClient/chain"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
)

const (
	rewardSlashPath = "/api/scan/account/reward_slash"
	maxResponseSize = 10 * 1024 * 1024
	defaultTimeout  = 10 * time.Second

	// MaxRows is the largest page Subscan serves.
	MaxRows = 100
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ chain.RewardSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the X-API-Key header sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for a Subscan base URL such as https://polkadot.api.subscan.io.
func New(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.With().Str("component", "subscan_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rewardSlashRequest struct {
	Row     int    `json:"row"`
	Page    int    `json:"page"`
	Address string `json:"address"`
}

type rewardSlashResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Count int `json:"count"`
		// numeric fields arrive as numbers or strings depending on the network
		List []struct {
			Era            any    `json:"era"`
			Amount         any    `json:"amount"`
			BlockTimestamp any    `json:"block_timestamp"`
			EventID        string `json:"event_id"`
		} `json:"list"`
	} `json:"data"`
}

// RewardsSlashes returns one page of the staker's reward and slash events, newest first.
func (c *Client) RewardsSlashes(ctx context.Context, staker string, page, row int) ([]chain.RewardInfo, error) {
	if row <= 0 || row > MaxRows {
		return nil, stakingerrors.NewValidationError("", fmt.Sprintf("row must be in 1..%d, got %d", MaxRows, row))
	}
	if page < 0 {
		return nil, stakingerrors.NewValidationError("", fmt.Sprintf("page must not be negative, got %d", page))
	}

	var resp rewardSlashResponse
	if err := c.post(ctx, rewardSlashPath, rewardSlashRequest{Row: row, Page: page, Address: staker}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, stakingerrors.NewRPCError("", fmt.Sprintf("subscan error %d: %s", resp.Code, resp.Message), nil)
	}

	rewards := make([]chain.RewardInfo, 0, len(resp.Data.List))
	for _, item := range resp.Data.List {
		era, errEra := cast.ToUint32E(item.Era)
		raw, errAmt := cast.ToStringE(item.Amount)
		amount, ok := math.NewIntFromString(raw)
		if errEra != nil || errAmt != nil || !ok {
			c.logger.Debug().Interface("amount", item.Amount).Interface("era", item.Era).Msg("skipping unparsable reward entry")
			continue
		}
		rewards = append(rewards, chain.RewardInfo{
			Era:       era,
			Reward:    amount,
			TimeStamp: cast.ToInt64(item.BlockTimestamp),
			Event:     item.EventID,
		})
	}
	return rewards, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return stakingerrors.NewNetworkError("", "subscan request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return stakingerrors.NewNetworkError("", "failed to read subscan response", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return stakingerrors.NewNetworkError("", "subscan rate limit exceeded", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return stakingerrors.NewRPCError("", fmt.Sprintf("subscan returned HTTP %d", resp.StatusCode), nil).
			WithContext("body", truncate(string(data), 256))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return stakingerrors.NewDecodeError("", "malformed subscan response", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
