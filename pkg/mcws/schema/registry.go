package schema

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
)

const fieldsExtension = "Library/Fields"

// Sender issues one MCWS request. *endpoint.Resolver satisfies it.
type Sender interface {
	Send(ctx context.Context, extension string, params endpoint.Params) (*endpoint.Response, error)
}

// Registry fetches the field catalogue once and caches it until Refresh or
// Invalidate.
type Registry struct {
	sender Sender
	log    zerolog.Logger

	mu       sync.RWMutex
	schema   *Schema
	cachedAt time.Time
}

// NewRegistry returns an empty registry that fetches through sender.
func NewRegistry(sender Sender, logger zerolog.Logger) *Registry {
	return &Registry{
		sender: sender,
		log:    logger.With().Str("component", "schema").Logger(),
	}
}

// Cached returns the cached schema, or nil before the first fetch.
func (r *Registry) Cached() *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schema
}

// Schema returns the cached schema, fetching it on first use.
func (r *Registry) Schema(ctx context.Context) (*Schema, error) {
	if s := r.Cached(); s != nil {
		return s, nil
	}
	return r.Refresh(ctx)
}

// Refresh re-fetches the catalogue and replaces the cache. On error the
// previous schema stays cached.
func (r *Registry) Refresh(ctx context.Context) (*Schema, error) {
	resp, err := r.sender.Send(ctx, fieldsExtension, nil)
	if err != nil {
		return nil, err
	}
	s, err := Parse(resp.Body, r.log)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.schema = s
	r.cachedAt = time.Now()
	r.mu.Unlock()

	r.log.Debug().Int("fields", s.Len()).Msg("field catalogue loaded")
	return s, nil
}

// Invalidate drops the cached schema.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = nil
	r.cachedAt = time.Time{}
}

// CacheStats describes the cached catalogue.
type CacheStats struct {
	CachedAt   time.Time
	Age        time.Duration
	HasData    bool
	FieldCount int
}

// Stats describes the cached catalogue.
func (r *Registry) Stats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := CacheStats{HasData: r.schema != nil}
	if r.schema != nil {
		stats.CachedAt = r.cachedAt
		stats.Age = time.Since(r.cachedAt)
		stats.FieldCount = r.schema.Len()
	}
	return stats
}
