// Package proxy forwards commands to the local driver's HTTP endpoint.
// It carries no protocol knowledge and never retries.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/smazurov/chromedriverd/internal/logging"
)

// Config describes where the driver listens.
type Config struct {
	Host    string
	Port    int
	URLBase string
	Timeout time.Duration
}

// Client sends JSON requests to the driver.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for http://<host>:<port>/<urlBase>.
func New(cfg Config) *Client {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    BaseURL(host, cfg.Port, cfg.URLBase),
		httpClient: httpClient,
		logger:     logging.GetLogger("proxy"),
	}
}

// BaseURL joins host, port and URL base without duplicate slashes.
func BaseURL(host string, port int, urlBase string) string {
	base := "http://" + host + ":" + strconv.Itoa(port)
	if trimmed := strings.Trim(urlBase, "/"); trimmed != "" {
		base += "/" + trimmed
	}
	return base
}

// BaseURL returns the URL prefix requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send issues method on path with body encoded as JSON. A nil body sends
// no payload. Non-2xx responses return *StatusError alongside the response.
func (c *Client) Send(ctx context.Context, path, method string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	result := &Response{StatusCode: resp.StatusCode, Body: data}
	c.logger.Debug("Driver responded", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: data}
	}
	return result, nil
}
