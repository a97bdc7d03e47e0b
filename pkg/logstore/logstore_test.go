package logstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/resilience"
)

type failingStore struct{}

func (failingStore) Store(ctx context.Context, executionID string, data []byte) (string, error) {
	return "", errors.New("unreachable bucket")
}

func (failingStore) Retrieve(ctx context.Context, reference string) ([]byte, error) {
	return nil, errors.New("unreachable bucket")
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Store(context.Background(), "exec-1", []byte("hello"))
	require.NoError(t, err)

	data, err := store.Retrieve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestResilientStoreFallsBackWhenPrimaryFails(t *testing.T) {
	fallback, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	breaker := resilience.NewCircuitBreaker("archive", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Second,
		MaxRequests:      1,
	})
	rs := NewResilientStore(failingStore{}, fallback, breaker, nil)

	ref, err := rs.Store(context.Background(), "exec-2", []byte("payload"))
	require.NoError(t, err)
	assert.NotContains(t, ref, "s3://")

	data, err := rs.Retrieve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestResilientStoreOpensBreakerAfterRepeatedFailures(t *testing.T) {
	fallback, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	breaker := resilience.NewCircuitBreaker("archive", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		MaxRequests:      1,
	})
	rs := NewResilientStore(failingStore{}, fallback, breaker, nil)

	for i := 0; i < 3; i++ {
		_, err := rs.Store(context.Background(), "exec-3", []byte("x"))
		require.NoError(t, err)
	}

	assert.Equal(t, resilience.CircuitOpen, breaker.State())
}

func TestExtractKeyHandlesPlainReference(t *testing.T) {
	assert.Equal(t, "plain/path.log", extractKey("plain/path.log"))
	assert.Equal(t, "2026/08/01/exec.log", extractKey("s3://bucket/2026/08/01/exec.log"))
}
