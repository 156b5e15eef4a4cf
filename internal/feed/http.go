package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DefaultBaseURL is the published spreadsheet the feeds come from.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vT8fNDpYBDVzD5I6fU1PHKTyIL13-Rebtkk03TknNutnS-6O49QI2nzm8OHsXtKtE1Kuyw3ULlzXXXJ/pub"

// DefaultUserAgent identifies palmtask to the feed server.
const DefaultUserAgent = "palmtask/1.0"

// Config configures an HTTPSource.
type Config struct {
	// BaseURL is the published resource all feeds hang off.
	BaseURL string

	// Gids selects the sheet of each feed. A feed with no gid is served by
	// the base resource itself.
	Gids map[Feed]string

	UserAgent string

	// Timeout bounds a whole request. Zero leaves the transport defaults.
	Timeout time.Duration

	// ReachabilityTimeout bounds the dial done by Available.
	ReachabilityTimeout time.Duration
}

// DefaultConfig returns the configuration of the production endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Gids: map[Feed]string{
			NonBuyers:     "1974384197",
			SkuMap:        "52566647",
			ProductImages: "746952367",
			Consultants:   "1774643875",
		},
		UserAgent:           DefaultUserAgent,
		ReachabilityTimeout: 5 * time.Second,
	}
}

// HTTPSource fetches feeds from the published endpoint.
type HTTPSource struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
}

// NewHTTPSource creates a source for cfg. If logger is nil, a default logger
// writing to stderr is used.
func NewHTTPSource(cfg Config, logger *log.Logger) *HTTPSource {
	if logger == nil {
		logger = log.New(os.Stderr, "[feed] ", log.LstdFlags)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &HTTPSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Client returns the HTTP client used for feed requests.
func (s *HTTPSource) Client() *http.Client { return s.client }

// URL returns the CSV export URL of feed f.
func (s *HTTPSource) URL(f Feed) (string, error) {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", s.cfg.BaseURL, err)
	}
	q := u.Query()
	if gid := s.cfg.Gids[f]; gid != "" {
		q.Set("gid", gid)
		q.Set("single", "true")
	}
	q.Set("output", "csv")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Available dials the endpoint host.
func (s *HTTPSource) Available(ctx context.Context) error {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", s.cfg.BaseURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("base url %q has no host", s.cfg.BaseURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}

	d := net.Dialer{Timeout: s.cfg.ReachabilityTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", u.Host, err)
	}
	return conn.Close()
}

// Open requests feed f.
func (s *HTTPSource) Open(ctx context.Context, f Feed) (io.ReadCloser, error) {
	target, err := s.URL(f)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", f, err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", f, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, &StatusError{Feed: f, Code: resp.StatusCode, Status: resp.Status}
	}
	s.logger.Printf("Fetched %s (%s, %v)", f, resp.Status, time.Since(start).Round(time.Millisecond))
	return resp.Body, nil
}
