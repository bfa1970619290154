package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

const templateKeyPrefix = "tpl:published:"

// TemplateCache is a read-through Redis cache for published templates.
// Published templates are world-readable and change rarely, so a short TTL
// keeps reads cheap without a coherent invalidation protocol.
type TemplateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTemplateCache creates a cache with the given entry TTL.
func NewTemplateCache(rdb *redis.Client, ttl time.Duration) *TemplateCache {
	return &TemplateCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached template, or (nil, nil) on a miss.
func (c *TemplateCache) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	data, err := c.rdb.Get(ctx, templateKeyPrefix+templateID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var t domain.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &t, nil
}

// Set stores a template under its id.
func (c *TemplateCache) Set(ctx context.Context, tpl *domain.Template) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, templateKeyPrefix+tpl.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
