package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "igharvest/pkg/errors"
	"igharvest/pkg/logger"
)

// maxBodySize bounds how much of a page or API response is read into memory.
const maxBodySize = 16 << 20

// Response is a fully read HTTP response.
type Response struct {
	Status int
	URL    string
	Body   []byte
}

// Client issues page and API requests on behalf of one browsing session.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient wraps httpClient with the default browser headers.
func NewClient(httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		logger: log,
	}
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetSession attaches the session credential as a cookie, together with the
// cookie that suppresses the consent interstitial.
func (c *Client) SetSession(sessionID string) {
	if sessionID == "" {
		c.headers["Cookie"] = "ig_nrcb=1"
		return
	}
	c.headers["Cookie"] = fmt.Sprintf("%s=%s; ig_nrcb=1", SessionCookie, sessionID)
}

// Get fetches url and reads the body. extra headers override the session
// headers. Connection failures come back as transport errors; the status is
// returned as-is and left to the caller.
func (c *Client) Get(ctx context.Context, url string, extra map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.Transport(url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errs.Transport(url, fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	return &Response{Status: resp.StatusCode, URL: resp.Request.URL.String(), Body: body}, nil
}
