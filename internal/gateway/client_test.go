package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockTransport implements Transport for testing
type mockTransport struct {
	lookupFunc func(ctx context.Context, gstin string) (*LookupResponse, error)
	calls      int32
}

func (m *mockTransport) Lookup(ctx context.Context, gstin string) (*LookupResponse, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.lookupFunc(ctx, gstin)
}

const validGSTIN = "27AAAAA0000A1Z5"

func TestClient_Verify(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("rejects wrong length without calling the transport", func(t *testing.T) {
		transport := &mockTransport{lookupFunc: func(ctx context.Context, gstin string) (*LookupResponse, error) {
			return &LookupResponse{Valid: true}, nil
		}}
		client := NewClient(transport, time.Second, logger)

		for _, id := range []string{"", "BAD", validGSTIN + "X"} {
			verdict := client.Verify(ctx, id)
			assert.False(t, verdict.Valid)
			assert.Equal(t, models.ReasonInvalidFormat, verdict.Reason)
		}
		assert.Equal(t, int32(0), atomic.LoadInt32(&transport.calls))
	})

	t.Run("maps registry reasons", func(t *testing.T) {
		tests := []struct {
			name     string
			resp     *LookupResponse
			expected models.Verdict
		}{
			{name: "active", resp: &LookupResponse{Valid: true, Reason: "ACTIVE"}, expected: models.Verdict{Valid: true, Reason: models.ReasonActive}},
			{name: "cancelled", resp: &LookupResponse{Reason: "CANCELLED"}, expected: models.Verdict{Reason: models.ReasonCancelled}},
			{name: "lower-case not found", resp: &LookupResponse{Reason: "not_found"}, expected: models.Verdict{Reason: models.ReasonNotFound}},
			{name: "backend offline", resp: &LookupResponse{Reason: "BACKEND_OFFLINE"}, expected: models.Verdict{Reason: models.ReasonGatewayUnavailable}},
			{name: "blank reason", resp: &LookupResponse{}, expected: models.Verdict{Reason: models.ReasonGatewayUnavailable}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				transport := &mockTransport{lookupFunc: func(ctx context.Context, gstin string) (*LookupResponse, error) {
					return tt.resp, nil
				}}
				verdict := NewClient(transport, time.Second, logger).Verify(ctx, validGSTIN)
				assert.Equal(t, tt.expected, verdict)
			})
		}
	})

	t.Run("transport error becomes gateway unavailable", func(t *testing.T) {
		transport := &mockTransport{lookupFunc: func(ctx context.Context, gstin string) (*LookupResponse, error) {
			return nil, errors.New("connection refused")
		}}

		verdict := NewClient(transport, time.Second, logger).Verify(ctx, validGSTIN)

		assert.Equal(t, models.Verdict{Valid: false, Reason: models.ReasonGatewayUnavailable}, verdict)
		assert.Equal(t, int32(1), atomic.LoadInt32(&transport.calls), "no retries")
	})

	t.Run("timeout becomes gateway unavailable", func(t *testing.T) {
		transport := &mockTransport{lookupFunc: func(ctx context.Context, gstin string) (*LookupResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}

		start := time.Now()
		verdict := NewClient(transport, 20*time.Millisecond, logger).Verify(ctx, validGSTIN)

		assert.Equal(t, models.ReasonGatewayUnavailable, verdict.Reason)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestHTTPTransport_Lookup(t *testing.T) {
	logger := zap.NewNop()

	t.Run("decodes verdict from the verification service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/verify/"+validGSTIN, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"valid":false,"reason":"SUSPENDED"}`))
		}))
		defer server.Close()

		transport := NewHTTPTransport(server.URL+"/", logger).WithHTTPClient(server.Client())
		verdict := NewClient(transport, time.Second, logger).Verify(context.Background(), validGSTIN)

		assert.Equal(t, models.Verdict{Valid: false, Reason: models.ReasonSuspended}, verdict)
	})

	t.Run("non-200 status is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer server.Close()

		transport := NewHTTPTransport(server.URL, logger).WithHTTPClient(server.Client())
		_, err := transport.Lookup(context.Background(), validGSTIN)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestSimulatedTransport_Lookup(t *testing.T) {
	transport := NewSimulatedTransport()
	ctx := context.Background()

	resp, err := transport.Lookup(ctx, validGSTIN)
	require.NoError(t, err)
	assert.True(t, resp.Valid)

	// byte sum 880: divisible by 8, and 880 % 4 selects CANCELLED
	resp, err = transport.Lookup(ctx, "27AAAAA0000A1Z6")
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "CANCELLED", resp.Reason)

	again, err := transport.Lookup(ctx, "27AAAAA0000A1Z6")
	require.NoError(t, err)
	assert.Equal(t, resp, again)
}

func TestCachingVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("calls the registry once per identifier", func(t *testing.T) {
		var calls int32
		inner := VerifierFunc(func(ctx context.Context, id string) models.Verdict {
			atomic.AddInt32(&calls, 1)
			return models.Verdict{Valid: false, Reason: models.ReasonNotFound}
		})
		cache := NewCachingVerifier(inner)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.Equal(t, models.ReasonNotFound, cache.Verify(ctx, validGSTIN).Reason)
			}()
		}
		wg.Wait()
		cache.Verify(ctx, validGSTIN)

		assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(20))
		assert.Equal(t, 1, cache.Len())

		before := atomic.LoadInt32(&calls)
		cache.Verify(ctx, validGSTIN)
		assert.Equal(t, before, atomic.LoadInt32(&calls), "cached verdict is reused")
	})

	t.Run("does not cache unavailable verdicts", func(t *testing.T) {
		var calls int32
		inner := VerifierFunc(func(ctx context.Context, id string) models.Verdict {
			atomic.AddInt32(&calls, 1)
			return models.Verdict{Reason: models.ReasonGatewayUnavailable}
		})
		cache := NewCachingVerifier(inner)

		cache.Verify(ctx, validGSTIN)
		cache.Verify(ctx, validGSTIN)

		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, 0, cache.Len())
	})
}

func TestNew_SelectsTransport(t *testing.T) {
	logger := zap.NewNop()

	_, err := New(Options{}, logger)
	assert.ErrorIs(t, err, ErrNoBackend)

	simulated, err := New(Options{Simulate: true, URL: "http://ignored"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedTransport{}, simulated.transport)

	remote, err := New(Options{URL: "http://gateway.local", Timeout: time.Second}, logger)
	require.NoError(t, err)
	assert.IsType(t, &HTTPTransport{}, remote.transport)
	assert.Equal(t, time.Second, remote.timeout)
}
