package geocache

import (
	"context"
	"time"
)

// Store is a shared second tier behind the in-memory cache, e.g. to share
// results between replicas. Load returns the remaining time to live of the
// entry alongside its payload.
type Store interface {
	Load(ctx context.Context, key string) (payload []byte, ttl time.Duration, ok bool, err error)
	Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
