package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errTerminal = errors.New("terminal")

func testRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
		RetryIf:       func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	result, err := RetryWithResult(context.Background(), testRetryConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	attempts := 0
	_, err := RetryWithResult(context.Background(), testRetryConfig(), func() (string, error) {
		attempts++
		return "", errTerminal
	})

	assert.ErrorIs(t, err, errTerminal)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := RetryWithResult(context.Background(), testRetryConfig(), func() (int, error) {
		attempts++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	cfg := testRetryConfig()
	cfg.InitialDelay = time.Second
	_, err := RetryWithResult(ctx, cfg, func() (int, error) {
		attempts++
		cancel() // cancel while waiting for the next attempt
		return 0, errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryNilClassifierRetriesEverything(t *testing.T) {
	cfg := testRetryConfig()
	cfg.RetryIf = nil

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return errTerminal
	})

	assert.ErrorIs(t, err, errTerminal)
	assert.Equal(t, 3, attempts)
}

func TestCalculateBackoff(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second

	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, initial, max, 2))
	assert.Equal(t, 200*time.Millisecond, CalculateBackoff(1, initial, max, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, initial, max, 2))
	assert.Equal(t, time.Second, CalculateBackoff(10, initial, max, 2))
}
