package scrape

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InflightMarker suppresses duplicate external-workflow invocations for the
// same canonical URL within a short window. Backed by redis SetNX when redis
// is configured; permissive (every Begin succeeds) otherwise, which restores
// the store-unique-key-only behavior.
type InflightMarker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewInflightMarker(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *InflightMarker {
	return &InflightMarker{client: client, ttl: ttl, logger: logger}
}

// Begin claims the in-flight slot for key. Returns false only when another
// trigger for the same key is already running. Redis errors are treated as a
// successful claim: the marker is an optimization, never a gate.
func (m *InflightMarker) Begin(ctx context.Context, key string) bool {
	if m == nil || m.client == nil || key == "" {
		return true
	}

	ok, err := m.client.SetNX(ctx, "inflight:scrape:"+key, 1, m.ttl).Result()
	if err != nil {
		m.logger.Debugw("inflight_marker_unavailable", "key", key, "err", err)
		return true
	}
	return ok
}

// End releases the slot early (e.g. after a failed dispatch) so the user can
// retry without waiting out the TTL.
func (m *InflightMarker) End(ctx context.Context, key string) {
	if m == nil || m.client == nil || key == "" {
		return
	}
	if err := m.client.Del(ctx, "inflight:scrape:"+key).Err(); err != nil {
		m.logger.Debugw("inflight_marker_release_failed", "key", key, "err", err)
	}
}
