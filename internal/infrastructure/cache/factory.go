// Package cache holds the stores that remember processed payment
// idempotency keys.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency backends accepted by ledger.idempotency_backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// NewIdempotencyStore builds the store selected by backend. It returns nil
// for BackendNone, which disables idempotency keys. When Redis cannot be
// reached the in-memory store is used instead, with a warning.
func NewIdempotencyStore(ctx context.Context, backend string, redisCfg config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch backend {
	case BackendNone:
		logger.Info("Payment idempotency keys disabled")
		return nil, nil
	case BackendMemory, "":
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		store, err := NewRedisIdempotencyStore(pingCtx, redisCfg)
		if err == nil {
			logger.Info("Using Redis idempotency store", zap.String("addr", redisCfg.Addr()))
			return store, nil
		}
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Retries routed to another ledger process will not be deduplicated.",
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
