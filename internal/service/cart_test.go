package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCartConfig(url string) CartConfig {
	return CartConfig{
		WorkerURL:        url,
		Timeout:          2 * time.Second,
		MaxRetries:       2,
		InitialInterval:  time.Millisecond,
		FailureThreshold: 3,
		OpenTimeout:      time.Minute,
	}
}

func TestCartService_AddToCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/add-to-cart", r.URL.Path)
		var req cartWorkerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		require.Len(t, req.Groceries, 2)
		_, _ = w.Write([]byte(`{"success":true,"added":["Eggs"],"failed":["Saffron"]}`))
	}))
	defer server.Close()

	svc := NewCartService(testCartConfig(server.URL), nil, nil)
	result, err := svc.AddToCart(context.Background(), "user-1", []string{"Eggs", "Saffron"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"Eggs"}, result.Added)
	assert.Equal(t, []string{"Saffron"}, result.Failed)
}

func TestCartService_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	svc := NewCartService(testCartConfig(server.URL), nil, nil)
	result, err := svc.AddToCart(context.Background(), "user-1", []string{"Eggs"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Added)
	assert.NotNil(t, result.Added)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCartService_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	svc := NewCartService(testCartConfig(server.URL), nil, nil)
	_, err := svc.AddToCart(context.Background(), "user-1", []string{"Eggs"})

	assert.ErrorIs(t, err, ErrCartRejected)
	assert.NotErrorIs(t, err, ErrCartUnavailable)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCartService_ClientErrorsDoNotOpenBreaker(t *testing.T) {
	var calls, rejecting int32 = 0, 1
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if atomic.LoadInt32(&rejecting) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"added":["Eggs"]}`))
	}))
	defer server.Close()

	svc := NewCartService(testCartConfig(server.URL), nil, nil)
	for i := 0; i < 5; i++ {
		_, err := svc.AddToCart(context.Background(), "user-1", []string{"Eggs"})
		require.ErrorIs(t, err, ErrCartRejected)
	}

	atomic.StoreInt32(&rejecting, 0)
	result, err := svc.AddToCart(context.Background(), "user-2", []string{"Eggs"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.EqualValues(t, 6, atomic.LoadInt32(&calls))
}

func TestCartService_BreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewCartService(testCartConfig(server.URL), nil, nil)

	_, err := svc.AddToCart(context.Background(), "user-1", []string{"Eggs"})
	assert.ErrorIs(t, err, ErrCartUnavailable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	_, err = svc.AddToCart(context.Background(), "user-1", []string{"Eggs"})
	assert.ErrorIs(t, err, ErrCartUnavailable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "open breaker must not reach the worker")
}

func TestCartService_Unconfigured(t *testing.T) {
	svc := NewCartService(CartConfig{}, nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.AddToCart(context.Background(), "user-1", []string{"Eggs"})
	assert.ErrorIs(t, err, ErrCartUnavailable)
}
