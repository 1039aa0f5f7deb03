package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"vct-predictor/internal/config"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

var (
	// ErrChallenge means the source answered with a bot challenge page
	// instead of content.
	ErrChallenge = errors.New("bot challenge not solved")
	ErrStatus    = errors.New("unexpected status")
)

const maxRedirects = 5

var challengeMarkers = [][]byte{
	[]byte("cf-chl"),
	[]byte("challenge-platform"),
	[]byte("Just a moment..."),
	[]byte("Attention Required!"),
}

// VLRClient fetches pages from the standings source. Requests look like a
// regular browser, carry the clearance cookie when one is configured, and
// are paced by a token bucket.
type VLRClient struct {
	client    *fasthttp.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	clearance string
	timeout   time.Duration

	statsMu sync.RWMutex
	stats   FetchStats
}

type FetchStats struct {
	Requests   int
	Challenges int
	Failures   int
	LastURL    string
	LastStatus int
	UpdatedAt  time.Time
}

func NewVLRClient(cfg *config.Config) *VLRClient {
	return &VLRClient{
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         cfg.FetchTimeout,
			WriteTimeout:        cfg.FetchTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
			ReadBufferSize:      16 * 1024,
		},
		limiter:   rate.NewLimiter(rate.Limit(cfg.FetchRate), 1),
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		clearance: cfg.CFClearance,
		timeout:   cfg.FetchTimeout,
	}
}

func (c *VLRClient) Stats() FetchStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *VLRClient) record(url string, status int, err error) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	c.stats.Requests++
	c.stats.LastURL = url
	c.stats.LastStatus = status
	if errors.Is(err, ErrChallenge) {
		c.stats.Challenges++
	}
	if err != nil {
		c.stats.Failures++
	}
	c.stats.UpdatedAt = time.Now()
}

// Fetch GETs url and returns the decoded body of a 2xx response. Redirects
// are followed. The request is bounded by the configured fetch timeout and
// by ctx, whichever ends first.
func (c *VLRClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	body, status, err := c.get(url, deadline)
	c.record(url, status, err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

func (c *VLRClient) get(url string, deadline time.Time) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if c.clearance != "" {
		req.Header.SetCookie("cf_clearance", c.clearance)
	}

	for range maxRedirects + 1 {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, 0, err
		}

		status := resp.StatusCode()
		if !fasthttp.StatusCodeIsRedirect(status) {
			break
		}
		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if len(location) == 0 {
			return nil, status, fmt.Errorf("%w: %d redirect without location", ErrStatus, status)
		}
		req.URI().UpdateBytes(location)
		resp.Reset()
	}

	status := resp.StatusCode()
	if fasthttp.StatusCodeIsRedirect(status) {
		return nil, status, fmt.Errorf("%w: too many redirects", ErrStatus)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, status, fmt.Errorf("failed to decode body: %w", err)
	}

	if isChallenge(status, resp.Header.Peek("Cf-Mitigated"), body) {
		return nil, status, fmt.Errorf("%w: status %d", ErrChallenge, status)
	}
	if status < 200 || status >= 300 {
		return nil, status, fmt.Errorf("%w: %d", ErrStatus, status)
	}

	// body is owned by resp, which goes back to the pool on return
	return bytes.Clone(body), status, nil
}

func isChallenge(status int, mitigated, body []byte) bool {
	if bytes.EqualFold(mitigated, []byte("challenge")) {
		return true
	}
	if status != fasthttp.StatusForbidden && status != fasthttp.StatusServiceUnavailable && status != fasthttp.StatusTooManyRequests {
		return false
	}
	for _, marker := range challengeMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}
