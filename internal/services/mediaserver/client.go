// Package mediaserver talks to an Emby/Jellyfin compatible media server API.
package mediaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/amaumene/watchenarr/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	appName    = "Watchenarr"
	appVersion = "1.2.0"
)

// Client handles communication with one media server instance
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      utils.RetryPolicy
	logger     *logrus.Logger
}

// NewClient creates a new media server API client
func NewClient(baseURL, apiKey string, retry utils.RetryPolicy, logger *logrus.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("server API key is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		retry:      retry,
		logger:     logger,
	}, nil
}

// get performs a GET request and decodes the JSON response into result
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.doRequest(ctx, http.MethodGet, path, params, nil, result)
}

// post performs a POST request with a JSON body
func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	return c.doRequest(ctx, http.MethodPost, path, nil, body, nil)
}

// doRequest performs an authenticated HTTP request against the server API
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + params.Encode()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    c.baseURL + path,
	}).Debug("Making media server API request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("X-Application", appName+"/"+appVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Perform request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	// Parse response
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
