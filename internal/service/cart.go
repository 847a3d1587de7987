package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// ErrCartUnavailable means the automation worker is not configured, is
// failing, or the breaker is open.
var ErrCartUnavailable = errors.New("cart automation is unavailable")

// ErrCartRejected means the worker answered but refused the request. It does
// not count against the circuit breaker.
var ErrCartRejected = errors.New("cart worker rejected the request")

// CartConfig configures the cart automation client
type CartConfig struct {
	WorkerURL       string
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	// Consecutive failures before the breaker opens.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// CartResult reports which items the worker managed to add
type CartResult struct {
	Success bool     `json:"success"`
	Added   []string `json:"added"`
	Failed  []string `json:"failed"`
}

type cartWorkerRequest struct {
	UserID    string           `json:"userId"`
	Groceries []types.CartItem `json:"groceries"`
}

// CartService drives the browser automation worker that fills a No Frills
// cart. The worker is unreliable, so calls are retried with backoff behind a
// circuit breaker.
type CartService struct {
	cfg     CartConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCartService creates a CartService. An empty WorkerURL yields a service
// that always reports ErrCartUnavailable.
func NewCartService(cfg CartConfig, collector *metrics.Collector, logger *zap.Logger) *CartService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cart")

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cart-worker",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCartRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &CartService{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		metrics: collector,
		logger:  logger,
	}
}

// Enabled reports whether a worker is configured
func (s *CartService) Enabled() bool {
	return s.cfg.WorkerURL != ""
}

// AddToCart asks the worker to add each item to the user's cart.
func (s *CartService) AddToCart(ctx context.Context, userID string, names []string) (*CartResult, error) {
	if !s.Enabled() {
		s.metrics.RecordCartRun("unavailable")
		return nil, ErrCartUnavailable
	}

	items := make([]types.CartItem, len(names))
	for i, name := range names {
		items[i] = types.CartItem{Name: name}
	}
	payload, err := json.Marshal(cartWorkerRequest{UserID: userID, Groceries: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart request: %w", err)
	}

	var result *CartResult
	attempt := 0
	operation := func() error {
		attempt++
		out, err := s.breaker.Execute(func() (interface{}, error) {
			return s.send(ctx, payload)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if err != nil {
			s.logger.Warn("cart worker attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		result = out.(*CartResult)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialInterval
	policy.MaxElapsedTime = s.cfg.Timeout
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.MaxRetries), ctx)); err != nil {
		if errors.Is(err, ErrCartRejected) {
			s.metrics.RecordCartRun("rejected")
			return nil, err
		}
		s.metrics.RecordCartRun("failed")
		return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}

	s.metrics.RecordCartRun("ok")
	return result, nil
}

func (s *CartService) send(ctx context.Context, payload []byte) (*CartResult, error) {
	endpoint := strings.TrimRight(s.cfg.WorkerURL, "/") + "/add-to-cart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach cart worker: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read worker response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("cart worker returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrCartRejected, resp.StatusCode))
	}

	var result CartResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode worker response: %w", err))
	}
	if result.Added == nil {
		result.Added = []string{}
	}
	if result.Failed == nil {
		result.Failed = []string{}
	}
	return &result, nil
}
