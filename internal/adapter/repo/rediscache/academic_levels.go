// Package rediscache provides a read-through cache for academic-level
// configuration. Caching is best effort: any Redis failure falls back to the
// wrapped repository so a cache outage never blocks grading.
package rediscache

import (
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// AcademicLevelCache wraps an AcademicLevelRepository with a TTL cache.
type AcademicLevelCache struct {
	inner domain.AcademicLevelRepository
	rdb   *redis.Client
	ttl   time.Duration
}

// NewAcademicLevelCache constructs the cache around inner.
func NewAcademicLevelCache(inner domain.AcademicLevelRepository, rdb *redis.Client, ttl time.Duration) *AcademicLevelCache {
	return &AcademicLevelCache{inner: inner, rdb: rdb, ttl: ttl}
}

func key(classID, subjectID string) string {
	return fmt.Sprintf("academic_level:%s:%s", classID, subjectID)
}

// Find returns the cached config when present, loading and caching it otherwise.
func (c *AcademicLevelCache) Find(ctx domain.Context, classID, subjectID string) (domain.AcademicLevel, error) {
	k := key(classID, subjectID)
	if raw, err := c.rdb.Get(ctx, k).Bytes(); err == nil {
		var lvl domain.AcademicLevel
		if jsonErr := json.Unmarshal(raw, &lvl); jsonErr == nil {
			return lvl, nil
		}
		// Corrupt entry: drop it and reload from the repository.
		_ = c.rdb.Del(ctx, k).Err()
	}

	lvl, err := c.inner.Find(ctx, classID, subjectID)
	if err != nil {
		return domain.AcademicLevel{}, err
	}

	if raw, jsonErr := json.Marshal(lvl); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, k, raw, c.ttl).Err(); setErr != nil {
			slog.Warn("academic level cache set failed",
				slog.String("key", k), slog.Any("error", setErr))
		}
	}
	return lvl, nil
}
