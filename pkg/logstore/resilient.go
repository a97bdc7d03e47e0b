package logstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskforge/taskforge/pkg/resilience"
)

// ResilientStore archives to a primary store (S3) behind a circuit
// breaker, falling back to a secondary store (local disk) whenever the
// breaker is open or the primary call itself fails. Retrieval is routed
// by the reference itself: s3:// references go to the primary, anything
// else to the fallback, with no retry on the other store.
type ResilientStore struct {
	primary  Store
	fallback Store
	breaker  *resilience.CircuitBreaker
	log      *zap.Logger
}

// NewResilientStore wraps primary with a breaker that degrades to fallback.
func NewResilientStore(primary, fallback Store, breaker *resilience.CircuitBreaker, log *zap.Logger) *ResilientStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResilientStore{primary: primary, fallback: fallback, breaker: breaker, log: log}
}

func (r *ResilientStore) Store(ctx context.Context, executionID string, data []byte) (string, error) {
	var ref string
	err := r.breaker.Execute(ctx, func() error {
		var innerErr error
		ref, innerErr = r.primary.Store(ctx, executionID, data)
		return innerErr
	})
	if err == nil {
		return ref, nil
	}

	r.log.Warn("archival fell back to local store",
		zap.String("execution_id", executionID),
		zap.Error(err),
	)
	return r.fallback.Store(ctx, executionID, data)
}

func (r *ResilientStore) Retrieve(ctx context.Context, reference string) ([]byte, error) {
	if isLocalReference(reference) {
		return r.fallback.Retrieve(ctx, reference)
	}
	return r.primary.Retrieve(ctx, reference)
}

func isLocalReference(reference string) bool {
	return len(reference) < 5 || reference[:5] != "s3://"
}
