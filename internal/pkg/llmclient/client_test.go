package llmclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewire/internal/core"
	"gatewire/internal/observability"
)

func fastConfig(url string) Config {
	cfg := DefaultConfig("test", url)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "value", r.Header.Get("X-Test"))
		assert.Equal(t, "/test", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), func(req *http.Request) {
		req.Header.Set("X-Test", "value")
	})

	var result struct {
		Message string `json:"message"`
	}
	require.NoError(t, client.Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/test"}, &result))
	assert.Equal(t, "hello", result.Message)
}

func TestClient_DoRaw_CreatedIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"input":{"prompt":"cat"}}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"p1","status":"starting"}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)
	resp, err := client.DoRaw(context.Background(), Request{
		Method:   http.MethodPost,
		Endpoint: "/predictions",
		RawBody:  []byte(`{"input":{"prompt":"cat"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClient_AbsoluteEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/p1", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(fastConfig("http://unused.invalid"), nil)
	_, err := client.DoRaw(context.Background(), Request{Method: http.MethodGet, Endpoint: server.URL + "/predictions/p1"})
	require.NoError(t, err)
}

func TestClient_Do_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)
	_, err := client.DoRaw(context.Background(), Request{Method: http.MethodGet, Endpoint: "/"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_NoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)
	_, err := client.DoRaw(context.Background(), Request{Method: http.MethodGet, Endpoint: "/", NoRetry: true})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType core.ErrorType
	}{
		{"bad request", http.StatusBadRequest, core.ErrorTypeInvalidRequest},
		{"unauthorized", http.StatusUnauthorized, core.ErrorTypeAuthentication},
		{"not found", http.StatusNotFound, core.ErrorTypeNotFound},
		{"internal", http.StatusInternalServerError, core.ErrorTypeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			client := New(fastConfig(server.URL), nil)
			_, err := client.DoRaw(context.Background(), Request{Method: http.MethodGet, Endpoint: "/"})

			var gwErr *core.GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.wantType, gwErr.Type)
			assert.Equal(t, "nope", gwErr.Message)
			assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
		})
	}
}

func TestClient_DoStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"a\":1}\n\n"))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)
	body, err := client.DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/", Body: map[string]any{"stream": true}})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"a\":1}\n\n", string(raw))
}

func TestClient_DoStream_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)
	_, err := client.DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/"})

	var gwErr *core.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, core.ErrorTypeRateLimit, gwErr.Type)
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 0
	cfg.CircuitBreaker = &CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Hour}
	client := New(cfg, nil)

	for i := 0; i < 2; i++ {
		_, err := client.DoRaw(context.Background(), Request{Method: http.MethodGet, Endpoint: "/"})
		require.Error(t, err)
	}
	assert.Equal(t, "open", client.circuitBreaker.State())

	_, err := client.DoRaw(context.Background(), Request{Method: http.MethodGet, Endpoint: "/"})
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newCircuitBreaker("test", 1, 2, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.Equal(t, "open", cb.State())
	assert.False(t, cb.Allow())
	assert.Equal(t, float64(2), testutil.ToFloat64(observability.CircuitState.WithLabelValues("test")))

	now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, "half-open", cb.State())

	cb.RecordSuccess()
	assert.Equal(t, "half-open", cb.State())
	cb.RecordSuccess()
	assert.Equal(t, "closed", cb.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(observability.CircuitState.WithLabelValues("test")))
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := newCircuitBreaker("probe", 2, 1, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.Equal(t, "closed", cb.State())
	cb.RecordFailure()
	assert.Equal(t, "open", cb.State())

	now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, "open", cb.State())
	assert.False(t, cb.Allow())
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	client := New(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.DoRaw(ctx, Request{Method: http.MethodGet, Endpoint: "/"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffCalculation(t *testing.T) {
	client := New(Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, BackoffFactor: 2}, nil)
	assert.Equal(t, time.Second, client.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, client.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, client.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, client.calculateBackoff(4))
}
