package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testRetrier(attempts int) retrier {
	return retrier{attempts: attempts, baseDelay: time.Millisecond, logger: zap.NewNop()}
}

func TestRetrierRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := testRetrier(3).do(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierDoesNotRetryBusinessErrors(t *testing.T) {
	calls := 0
	err := testRetrier(5).do(context.Background(), "test", func() error {
		calls++
		return newError(KindInsufficientBalance, "7", "not enough HSC")
	})

	assertKind(t, err, KindInsufficientBalance)
	assert.Equal(t, 1, calls)
}

func TestRetrierReportsOperationFailed(t *testing.T) {
	calls := 0
	cause := errors.New("connection reset")
	err := testRetrier(3).do(context.Background(), "buy", func() error {
		calls++
		return cause
	})

	assertKind(t, err, KindOperationFailed)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrOperationFailed))
	assert.Equal(t, 3, calls)
}

func TestEngineErrorMatchesByKind(t *testing.T) {
	err := newError(KindExpired, "HSAB12C", "promo code has expired")
	assert.True(t, errors.Is(err, ErrExpired))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "HSAB12C")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()
	var wg sync.WaitGroup
	var mu sync.Mutex
	inside := 0
	maxInside := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("code:HSAB12C")
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Empty(t, locks.locks)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := NewKeyedMutex()
	unlockA := locks.Lock("user:1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("user:2")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}
