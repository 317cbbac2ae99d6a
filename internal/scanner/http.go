package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultStatusPath = "/status.json"

// Options parameterise the HTTP snapshot client.
type Options struct {
	BaseURL    string
	StatusPath string
	Timeout    time.Duration
	UserAgent  string
}

// Client fetches snapshots from the scan process over HTTP.
type Client struct {
	opts     Options
	logger   zerolog.Logger
	client   *http.Client
	endpoint string
}

// NewClient constructs a snapshot client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	path := opts.StatusPath
	if path == "" {
		path = defaultStatusPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &Client{
		opts:     opts,
		logger:   logger.With().Str("component", "scanner_client").Logger(),
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(opts.BaseURL, "/") + path,
	}
}

// FetchSnapshot retrieves and returns the raw snapshot body.
func (c *Client) FetchSnapshot(ctx context.Context) (json.RawMessage, error) {
	if c.opts.BaseURL == "" {
		return nil, errors.New("scanner base url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "epochwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, errors.New("scanner returned a non-JSON body")
	}

	return json.RawMessage(body), nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("scanner error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("scanner error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("scanner error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("scanner error (%d)", status)
}

var _ SnapshotFetcher = (*Client)(nil)
