package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/metrics"
)

// retrier runs atomic operations again when they fail for transient reasons.
// Business-rule errors are returned immediately.
type retrier struct {
	attempts  int
	baseDelay time.Duration
	logger    *zap.Logger
	metrics   *metrics.EngineMetrics
}

func newRetrier(cfg config.EngineConfig, logger *zap.Logger, m *metrics.EngineMetrics) retrier {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.RetryBaseDelay
	if delay <= 0 {
		delay = 20 * time.Millisecond
	}
	return retrier{attempts: attempts, baseDelay: delay, logger: logger, metrics: m}
}

func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.baseDelay
	policy.MaxInterval = 10 * r.baseDelay
	policy.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if isBusinessError(err) {
			return backoff.Permanent(err)
		}
		r.metrics.Retry(op)
		r.logger.Warn("transient failure, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.attempts-1)), ctx))

	if err == nil || isBusinessError(err) {
		return err
	}
	r.logger.Error("operation failed after retries",
		zap.String("operation", op),
		zap.Int("attempts", attempt),
		zap.Error(err),
	)
	return &EngineError{Kind: KindOperationFailed, Subject: op, Message: "operation failed", Err: err}
}

// KeyedMutex serializes work per entity key (a code value or a user) without a global lock.
// Callers that need both take the user key before the code key.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty lock table
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the lock for key and returns its release function
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func userKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func codeKey(code string) string {
	return "code:" + code
}
