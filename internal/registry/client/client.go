// Package client talks to the remote workforce registry: a credentials
// exchange for a short-lived bearer token, then one listing call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"idsync/internal/platform/config"
	"idsync/internal/registry/models"
	id "idsync/pkg/domain"
)

const maxPayloadBytes = 64 << 20

// Client is stateless across cycles: every fetch acquires a fresh token.
type Client struct {
	cfg    config.Registry
	http   *http.Client
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Client)

// WithHTTPClient overrides the transport, e.g. for httptest servers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.Registry, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(connect, read time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: connect + read}
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type listEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recordPayload struct {
	ExternalID  *string `json:"external_id"`
	StatusCode  *int    `json:"status_code"`
	StatusLabel string  `json:"status_label"`
	Username    string  `json:"username"`
}

// FetchActiveRecords performs the token exchange and listing call. Every
// failure is returned as *models.UnavailableError.
func (c *Client) FetchActiveRecords(ctx context.Context) (*models.FetchResult, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodGet, c.cfg.ListPath, nil, token)
	if err != nil {
		return nil, &models.UnavailableError{Stage: models.StageList, Message: "listing request failed", Underlying: err}
	}
	if status != http.StatusOK {
		return nil, &models.UnavailableError{Stage: models.StageList, HTTPStatus: status, Message: "unexpected status"}
	}

	result, err := parseListResponse(body)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "registry records fetched",
		"records", len(result.Records),
		"quarantined", result.Quarantined,
		"payload_bytes", len(result.RawPayload),
	)
	return result, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	reqBody, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
	})
	if err != nil {
		return "", &models.UnavailableError{Stage: models.StageToken, Message: "encode credentials", Underlying: err}
	}

	status, body, err := c.do(ctx, http.MethodPost, c.cfg.TokenPath, reqBody, "")
	if err != nil {
		return "", &models.UnavailableError{Stage: models.StageToken, Message: "token request failed", Underlying: err}
	}
	if status != http.StatusOK {
		return "", &models.UnavailableError{Stage: models.StageToken, HTTPStatus: status, Message: "credentials rejected"}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &models.UnavailableError{Stage: models.StageToken, Message: "malformed token response", Underlying: err}
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return "", &models.UnavailableError{Stage: models.StageToken, Message: "empty access token"}
	}
	if err := checkTokenExpiry(tr.AccessToken, c.now()); err != nil {
		return "", err
	}
	return tr.AccessToken, nil
}

// checkTokenExpiry rejects a JWT bearer token that is already expired.
// Opaque (non-JWT) tokens are accepted as-is; the registry validates them.
func checkTokenExpiry(token string, now time.Time) error {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return &models.UnavailableError{Stage: models.StageToken, Message: "issued token already expired"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, bearer string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

// parseListResponse decodes the success envelope into typed records.
// Entries without an external id or status code, and repeats of an external
// id already seen in this response, are quarantined rather than trusted.
func parseListResponse(body []byte) (*models.FetchResult, error) {
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &models.UnavailableError{Stage: models.StageDecode, Message: "malformed envelope", Underlying: err}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "registry reported failure"
		}
		return nil, &models.UnavailableError{Stage: models.StageList, Message: msg}
	}

	var entries []json.RawMessage
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &entries); err != nil {
			return nil, &models.UnavailableError{Stage: models.StageDecode, Message: "data is not a list", Underlying: err}
		}
	}

	result := &models.FetchResult{
		Records:    make([]models.Record, 0, len(entries)),
		RawPayload: body,
	}
	seen := make(map[id.ExternalID]struct{}, len(entries))
	for _, raw := range entries {
		var p recordPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.ExternalID == nil || p.StatusCode == nil {
			result.Quarantined++
			continue
		}
		ext := id.NewExternalID(*p.ExternalID)
		if ext.IsZero() {
			result.Quarantined++
			continue
		}
		if _, dup := seen[ext]; dup {
			result.Quarantined++
			continue
		}
		seen[ext] = struct{}{}
		result.Records = append(result.Records, models.Record{
			ExternalID:     ext,
			StatusCode:     models.StatusCode(*p.StatusCode),
			StatusLabel:    p.StatusLabel,
			RemoteUsername: p.Username,
		})
	}
	return result, nil
}
