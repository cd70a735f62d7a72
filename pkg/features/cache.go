package features

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// Cache keeps hot feature vectors in Redis for low-latency scoring reads.
// It is strictly best effort: a cache failure is logged and otherwise
// invisible to callers.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(patientID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, patientID)
}

func (c *Cache) Put(ctx context.Context, patientID string, vector models.FeatureVector) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(vector)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to encode feature vector for cache")
		return
	}
	if err := c.client.Set(ctx, c.key(patientID), data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Warn("failed to cache feature vector")
	}
}

func (c *Cache) Get(ctx context.Context, patientID string) (models.FeatureVector, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(patientID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).WithField("patient_id", patientID).Warn("feature cache read failed")
		}
		return nil, false
	}

	var vector models.FeatureVector
	if err := json.Unmarshal(data, &vector); err != nil {
		logger.Log.WithError(err).Warn("corrupt feature cache entry")
		return nil, false
	}
	return vector, true
}

func (c *Cache) Invalidate(ctx context.Context, patientID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(patientID)).Err(); err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Warn("feature cache invalidation failed")
	}
}
