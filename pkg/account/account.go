// Package account drives a session against the running backend: login,
// semester and limit discovery, and signed activity uploads.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yaoshiu/pretty-der6y/pkg/domain/routine"
	httputil "github.com/yaoshiu/pretty-der6y/pkg/infrastructure/http"
)

// DefaultBackend is the backend host used when none is configured.
const DefaultBackend = "cpes.legym.cn"

const (
	pathLogin        = "/authorization/user/v2/manage/login"
	pathSemester     = "/education/semester/getCurrent"
	pathVersion      = "/authorization/mobileApp/getLastVersion?platform=2"
	pathRunningLimit = "/running/app/getRunningLimit"
	pathUpload       = "/running//app/v3/upload"
)

// Config identifies the backend.
type Config struct {
	// Backend is the host name, e.g. cpes.legym.cn.
	Backend string
}

// Session is the state established by Login.
type Session struct {
	UserID         string
	SchoolID       string
	OrganizationID string
	AccessToken    string
	SemesterID     string
	AppVersion     string
}

// Limits are the running limits of the current semester, in km.
type Limits struct {
	DailyMileage   float64
	DayMileage     float64
	WeeklyMileage  float64
	WeekMileage    float64
	EffectiveStart float64
	EffectiveEnd   float64
	LimitationID   string
	ScoringType    uint8
}

// Client talks to one backend on behalf of one account. It is safe for
// concurrent use; calls are serialized.
type Client struct {
	backend string
	baseURL string
	base    http.RoundTripper
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
	rng     *rand.Rand

	mu      sync.Mutex
	session *Session
	limits  *Limits
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the RoundTripper requests are sent through.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithTimeout bounds each backend request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the clock used for login envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRand sets the source of upload jitter.
func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rng = r }
}

// WithBaseURL overrides the scheme and authority requests are sent to while
// keeping the configured backend as the Host header.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	backend := cfg.Backend
	if backend == "" {
		backend = DefaultBackend
	}

	c := &Client{
		backend: backend,
		baseURL: "https://" + backend,
		timeout: 30 * time.Second,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = routine.NewRand()
	}
	return c
}

// Session returns a copy of the current session, or nil before Login.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Limits returns a copy of the current limits, or nil before Login.
func (c *Client) Limits() *Limits {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limits == nil {
		return nil
	}
	l := *c.limits
	return &l
}

func (c *Client) httpClient(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

// do sends a JSON request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	raw, err := httputil.DecodeJSON(resp, out)
	if raw != nil {
		c.logger.Debug("Backend response", "path", path, "body", string(raw))
	}
	return err
}
