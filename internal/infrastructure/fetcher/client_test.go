package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested pauses without waiting
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestClient(opts Options) (*Client, *recordingSleep) {
	client := NewClient(opts, zerolog.Nop())
	rec := &recordingSleep{}
	client.sleep = rec.sleep
	return client, rec
}

func TestNewClient(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())

	require.NotNil(t, client)
	assert.NotNil(t, client.http)
	assert.Equal(t, DefaultOptions().UserAgent, client.opts.UserAgent)
	assert.Equal(t, "en,fr;q=0.9", client.opts.AcceptLanguage)
	assert.Equal(t, 12*time.Second, client.opts.Timeout)
	assert.Equal(t, 0, client.opts.Retries)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 600 * time.Millisecond},
		{2, 1200 * time.Millisecond},
		{3, 1800 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, backoff(600*time.Millisecond, tt.attempt))
		})
	}
}

func TestJitter(t *testing.T) {
	lo, hi := 500*time.Millisecond, 1100*time.Millisecond
	for i := 0; i < 200; i++ {
		d := Jitter(lo, hi)
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}

	assert.Equal(t, lo, Jitter(lo, lo))
	assert.Equal(t, hi, Jitter(hi, lo))
}

func TestFetch_SendsIdentityHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "en,fr;q=0.9", r.Header.Get("Accept-Language"))
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client, rec := newTestClient(Options{UserAgent: "test-agent/1.0", DelayMin: 10 * time.Millisecond, DelayMax: 20 * time.Millisecond})

	page, err := client.Fetch(context.Background(), server.URL+"/category/waters")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "<html>ok</html>", string(page.Body))
	assert.Equal(t, server.URL+"/category/waters", page.URL)

	// one jittered pause after the success, within range
	require.Len(t, rec.delays, 1)
	assert.GreaterOrEqual(t, rec.delays[0], 10*time.Millisecond)
	assert.LessOrEqual(t, rec.delays[0], 20*time.Millisecond)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client, rec := newTestClient(Options{Retries: 3, RetryBase: 100 * time.Millisecond})

	page, err := client.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "recovered", string(page.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// two backoffs, then the post-success pause (zero range)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 0}, rec.delays)
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, rec := newTestClient(Options{Retries: 3, RetryBase: 600 * time.Millisecond})
	url := server.URL + "/product/3017620422003"

	page, err := client.Fetch(context.Background(), url)

	assert.Nil(t, page)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, url, fetchErr.URL)
	assert.Equal(t, 4, fetchErr.Attempts)
	assert.Contains(t, fetchErr.Error(), url)
	assert.Contains(t, fetchErr.Err.Error(), "500")
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	// strictly increasing and bounded by base*(1+2+3)
	require.Len(t, rec.delays, 3)
	var total time.Duration
	for i, d := range rec.delays {
		if i > 0 {
			assert.Greater(t, d, rec.delays[i-1])
		}
		total += d
	}
	assert.Equal(t, 3600*time.Millisecond, total)
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, rec := newTestClient(Options{Retries: 2, RetryBase: time.Millisecond})

	_, err := client.Fetch(context.Background(), url)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, rec.delays)
}

func TestFetch_StopsWhenContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Options{Retries: 3, RetryBase: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Fetch(ctx, server.URL)

	assert.Less(t, time.Since(start), 5*time.Second)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 1, fetchErr.Attempts)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
