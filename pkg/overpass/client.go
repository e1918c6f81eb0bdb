package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
)

// ErrAllEndpointsFailed is returned when every mirror failed on every attempt.
var ErrAllEndpointsFailed = errors.New("all overpass endpoints failed")

// DefaultEndpoints are the public mirrors, in priority order.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.openstreetmap.fr/api/interpreter",
}

const (
	// maxResponseBytes caps a single response body.
	maxResponseBytes = 512 << 20
	probeTimeout     = 3 * time.Second
)

// Fetcher retrieves raw rail infrastructure for a bounding box.
type Fetcher interface {
	FetchRailNetwork(ctx context.Context, b orb.Bound) (*osm.OSM, error)
}

// Config holds client configuration.
type Config struct {
	Endpoints    []string
	MaxAttempts  int           // attempts per endpoint
	RetryDelay   time.Duration // wait between attempts on the same endpoint
	QueryTimeout time.Duration // server-side timeout embedded in the query
	UserAgent    string
}

// DefaultConfig returns the mirror list and retry policy of the public service.
func DefaultConfig() Config {
	return Config{
		Endpoints:    append([]string(nil), DefaultEndpoints...),
		MaxAttempts:  2,
		RetryDelay:   1500 * time.Millisecond,
		QueryTimeout: 60 * time.Second,
		UserAgent:    "rail_router/1.0",
	}
}

// Stats is a snapshot of client counters.
type Stats struct {
	Requests int64 `json:"requests"`
	Failures int64 `json:"failures"`
}

// Client queries Overpass mirrors with failover and retry. It keeps no
// state between calls apart from counters and is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logrus.FieldLogger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	requests *xsync.Counter
	failures *xsync.Counter
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient and a
// nil logger uses the logrus standard logger.
func NewClient(cfg Config, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		cfg:      cfg,
		http:     httpClient,
		log:      logger.WithField("module", "overpass"),
		sleep:    sleepContext,
		requests: xsync.NewCounter(),
		failures: xsync.NewCounter(),
	}
}

// Stats returns the request counters.
func (c *Client) Stats() Stats {
	return Stats{Requests: c.requests.Value(), Failures: c.failures.Value()}
}

// FetchRailNetwork runs the railway query for b against each endpoint in
// priority order, retrying each one up to MaxAttempts times. A successful
// response with no elements yields empty data, not an error.
func (c *Client) FetchRailNetwork(ctx context.Context, b orb.Bound) (*osm.OSM, error) {
	query := Query(b, c.cfg.QueryTimeout)

	var lastErr error
	for _, endpoint := range c.cfg.Endpoints {
		for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
			data, err := c.post(ctx, endpoint, query)
			if err == nil {
				c.log.WithFields(logrus.Fields{
					"endpoint": endpoint,
					"attempt":  attempt,
					"nodes":    len(data.Nodes),
					"ways":     len(data.Ways),
				}).Debug("fetched rail network")
				return data, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			lastErr = err
			c.failures.Inc()
			c.log.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"attempt":  attempt,
			}).WithError(err).Warn("overpass request failed")

			if attempt < c.cfg.MaxAttempts {
				if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
					return nil, err
				}
			}
		}
	}

	if lastErr == nil {
		return nil, fmt.Errorf("%w: no endpoints configured", ErrAllEndpointsFailed)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllEndpointsFailed, lastErr)
}

// Online reports whether a TCP connection to any endpoint host can be
// opened. It sends no query.
func (c *Client) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	for _, endpoint := range c.cfg.Endpoints {
		addr, err := hostPort(endpoint)
		if err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return true
		}
	}
	c.log.Warn("no overpass endpoint reachable")
	return false
}

func hostPort(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	if u.Scheme == "http" {
		return net.JoinHostPort(u.Hostname(), "80"), nil
	}
	return net.JoinHostPort(u.Hostname(), "443"), nil
}

// post sends one query and decodes the response.
func (c *Client) post(ctx context.Context, endpoint, query string) (*osm.OSM, error) {
	c.requests.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	return Decode(io.LimitReader(resp.Body, maxResponseBytes))
}

// Decode reads an Overpass JSON document. A missing or empty elements
// array yields empty data.
func Decode(r io.Reader) (*osm.OSM, error) {
	data := &osm.OSM{}
	if err := json.NewDecoder(r).Decode(data); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
