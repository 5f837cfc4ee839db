package ports

import (
	"context"
	"time"
)

// Cache is the narrow caching contract shared by the Redis-backed and
// in-memory adapters (internal/adapter/cache). It fronts the IdTag lookup
// and the MeterValues rate counter; it is never used for registry/liveness
// state, which spec.md §4.3/§4.5/§9 requires to stay process-local.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}

// MessageQueue is the outbound domain-event bus contract (internal/adapter/queue).
// Handlers publish best-effort events after a successful DB commit; a publish
// failure is logged and never changes the OCPP response (spec.md §4.4/§7).
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}
