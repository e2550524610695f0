package fetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Options configures the fetcher. An empty identity or timeout falls back to
// DefaultOptions; zero retries and delays are kept as given.
type Options struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	Retries        int // extra attempts after the first
	RetryBase      time.Duration
	DelayMin       time.Duration
	DelayMax       time.Duration
}

// DefaultOptions returns the settings used against the public site
func DefaultOptions() Options {
	return Options{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		AcceptLanguage: "en,fr;q=0.9",
		Timeout:        12 * time.Second,
		Retries:        3,
		RetryBase:      600 * time.Millisecond,
		DelayMin:       500 * time.Millisecond,
		DelayMax:       1100 * time.Millisecond,
	}
}

// Client fetches pages with a fixed browser identity, linear backoff
// between failed attempts and a jittered pause after every success.
// Every call is a fresh request.
type Client struct {
	http   *resty.Client
	opts   Options
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new page fetcher
func NewClient(opts Options, logger zerolog.Logger) *Client {
	defaults := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = defaults.AcceptLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}

	logger = logger.With().Str("component", "fetcher").Logger()

	// Retries are driven by Fetch so the backoff stays linear; resty
	// performs exactly one attempt per call.
	httpClient := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept-Language", opts.AcceptLanguage).
		SetLogger(restyLogger{logger: logger})

	return &Client{
		http:   httpClient,
		opts:   opts,
		logger: logger,
		sleep:  Sleep,
	}
}

// Fetch GETs url, retrying transport errors and non-2xx responses up to
// Retries times. Attempt n is followed by a RetryBase*n pause. When every
// attempt fails a *domain.FetchError is returned.
func (c *Client) Fetch(ctx context.Context, url string) (*domain.Page, error) {
	maxAttempts := c.opts.Retries + 1

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++

		page, err := c.do(ctx, url)
		if err == nil {
			// Pause is best-effort; a cancelled context still gets the page
			_ = c.sleep(ctx, c.jitter())
			return page, nil
		}

		lastErr = err
		c.logger.Debug().Err(err).Str("url", url).Int("attempt", attempt).Msg("fetch attempt failed")

		if attempt == maxAttempts {
			break
		}
		if c.sleep(ctx, backoff(c.opts.RetryBase, attempt)) != nil {
			break
		}
	}

	c.logger.Warn().Err(lastErr).Str("url", url).Int("attempts", attempt).Msg("all fetch attempts failed")
	return nil, &domain.FetchError{URL: url, Attempts: attempt, Err: lastErr}
}

// do performs a single GET
func (c *Client) do(ctx context.Context, url string) (*domain.Page, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	return &domain.Page{
		URL:        url,
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

// jitter picks a uniform pause in [DelayMin, DelayMax]
func (c *Client) jitter() time.Duration {
	return Jitter(c.opts.DelayMin, c.opts.DelayMax)
}

// backoff returns the pause after a failed attempt (1-based)
func backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// Jitter returns a uniformly random duration in [lo, hi]
func Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// restyLogger routes resty's internal messages through zerolog
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Trace().Msgf(format, v...)
}
