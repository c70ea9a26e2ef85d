package fetcher

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/resilience"
)

// ClientOptions configures the registry HTTP client.
type ClientOptions struct {
	Timeout           time.Duration // per-request timeout, default 30s
	MaxRetries        int           // attempt cap per request; 1 disables retries, <=0 falls back to 3
	MaxConcurrent     int64         // in-flight request cap across the client, default 50
	RequestsPerSecond float64       // global outbound rate, default 100
	Proxies           []string      // egress proxy pool, may be empty
	RotateProxies     bool
}

// Client issues JSON GET requests with a global admission gate, a global
// rate limiter, retry with exponential backoff, and per-attempt rotation of
// proxy and User-Agent. One Client is shared by all registry lookups so the
// concurrency cap applies across the whole executor.
type Client struct {
	direct  *http.Client
	proxied []*http.Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	retry   resilience.RetryConfig
}

// NewClient builds a Client; invalid proxy URLs are rejected up front.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = 50
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 100
	}

	newTransport := func(proxy *url.URL) *http.Transport {
		t := &http.Transport{
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		}
		if proxy != nil {
			t.Proxy = http.ProxyURL(proxy)
		}
		return t
	}

	c := &Client{
		direct: &http.Client{
			Timeout:   opts.Timeout,
			Transport: newTransport(nil),
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)),
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
	}

	if opts.RotateProxies {
		for _, p := range opts.Proxies {
			u, err := url.Parse(p)
			if err != nil {
				return nil, eris.Wrapf(err, "fetcher: parse proxy %q", p)
			}
			c.proxied = append(c.proxied, &http.Client{
				Timeout:   opts.Timeout,
				Transport: newTransport(u),
			})
		}
	}

	c.retry = resilience.DefaultRetryConfig()
	c.retry.MaxAttempts = opts.MaxRetries

	return c, nil
}

// GetJSON issues a GET with query params and decodes the JSON response.
// Transient failures (network errors, 429, 5xx) are retried up to the
// configured attempt cap; a 429 additionally sleeps a random 1-3s before
// the retry. Non-transient HTTP statuses and malformed payloads fail
// immediately.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger(hostOf(rawURL), "GET")

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		err := c.doOnce(ctx, rawURL, params, out)

		// 429 asks for extra courtesy before the next attempt.
		var te *resilience.TransientError
		if eris.As(err, &te) && te.StatusCode == http.StatusTooManyRequests {
			sleepJitter(ctx, time.Second, 3*time.Second)
		}
		return err
	})
}

// doOnce performs a single attempt. The admission permit is held only for
// the duration of the request so backoff sleeps do not starve other leads.
func (c *Client) doOnce(ctx context.Context, rawURL string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "fetcher: rate limiter wait")
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return eris.Wrap(err, "fetcher: acquire permit")
	}
	defer c.sem.Release(1)

	reqURL := rawURL
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrapf(err, "fetcher: GET %s", rawURL), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return eris.Wrapf(err, "fetcher: decode response from %s", rawURL)
		}
		return nil
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	default:
		return eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL)
	}
}

// httpClient picks the egress identity for one attempt.
func (c *Client) httpClient() *http.Client {
	if len(c.proxied) == 0 {
		return c.direct
	}
	return c.proxied[pickProxy(len(c.proxied))]
}

func sleepJitter(ctx context.Context, min, max time.Duration) {
	d := min + time.Duration(rand.Int64N(int64(max-min)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
