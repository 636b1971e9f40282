package ecobee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production API root
const DefaultBaseURL = "https://api.ecobee.com"

// Client talks to the ecobee REST API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a new API client. A nil httpClient gets a 30 second timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiKey == "" {
		return nil, errors.New("[ECOBEE] empty api key")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Status is the envelope every API response carries. Code 0 means success.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type statusEnvelope struct {
	Status *Status `json:"status"`
}

// do performs a request and decodes the JSON response into dest
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, accessToken string, dest interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return transportError(op, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	c.logger.Debug("calling ecobee api", zap.String("op", op), zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(op, 0, fmt.Errorf("error connecting to %s: %w", c.baseURL+path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transportError(op, resp.StatusCode, fmt.Errorf("server returned: %s", truncate(data, 200)))
	}

	if err := checkStatus(data); err != nil {
		return transportError(op, resp.StatusCode, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return decodeError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// checkStatus rejects responses whose status envelope carries a non-zero code
func checkStatus(body []byte) error {
	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status == nil {
		return nil
	}
	if env.Status.Code != 0 {
		return fmt.Errorf("api status %d: %s", env.Status.Code, env.Status.Message)
	}
	return nil
}

// jsonBodyQuery encodes payload into the body query parameter the API expects on GET
func jsonBodyQuery(payload interface{}) (url.Values, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return url.Values{
		"format": {"json"},
		"body":   {string(body)},
	}, nil
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
