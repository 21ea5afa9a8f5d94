// Package cache maps query fingerprints to previously produced answer
// envelopes, with TTL expiry and predicate invalidation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aquasense/orchestrator/internal/domain"
)

// Fingerprint is a deterministic hash of (normalized query text, role,
// filters). Identical inputs always produce the same fingerprint.
type Fingerprint string

// ComputeFingerprint derives the cache key for a query. Conversation id is
// deliberately excluded: the same question from the same role with the same
// filters yields the same answer regardless of conversation.
func ComputeFingerprint(q domain.Query) Fingerprint {
	normalized := strings.Join(strings.Fields(strings.ToLower(q.Text)), " ")
	canonical := fmt.Sprintf("%s|%s|region=%s;body_type=%s;priority_level=%s;entity_id=%d",
		normalized, q.Role, q.Filters.Region, q.Filters.BodyType, q.Filters.PriorityLevel, q.Filters.EntityID)
	sum := sha256.Sum256([]byte(canonical))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

type entry struct {
	envelope  domain.AnswerEnvelope
	query     domain.Query
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.createdAt.Add(e.ttl))
}

// Cache is the process-wide answer cache. Writes are independent per
// fingerprint; a put for a present fingerprint overwrites (last write wins).
type Cache struct {
	mu      sync.Mutex
	entries map[Fingerprint]entry
	log     zerolog.Logger
}

// New creates an empty cache.
func New(log zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[Fingerprint]entry),
		log:     log.With().Str("component", "cache").Logger(),
	}
}

// Get returns the cached envelope if present and unexpired. Expiry is
// checked lazily here; expired entries are dropped on sight.
func (c *Cache) Get(fp Fingerprint) (domain.AnswerEnvelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		return domain.AnswerEnvelope{}, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, fp)
		return domain.AnswerEnvelope{}, false
	}
	return e.envelope, true
}

// Put stores an envelope with the query metadata used for predicate
// invalidation.
func (c *Cache) Put(fp Fingerprint, q domain.Query, envelope domain.AnswerEnvelope, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = entry{
		envelope:  envelope,
		query:     q,
		createdAt: time.Now(),
		ttl:       ttl,
	}
}

// Invalidate removes every entry whose stored query metadata matches the
// predicate and returns how many were removed. Unrelated entries are
// untouched.
func (c *Cache) Invalidate(pred func(q domain.Query, envelope domain.AnswerEnvelope) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fp, e := range c.entries {
		if pred(e.query, e.envelope) {
			delete(c.entries, fp)
			removed++
		}
	}
	if removed > 0 {
		c.log.Info().Int("removed", removed).Msg("cache entries invalidated")
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops everything. Called on shutdown and on full data invalidation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Fingerprint]entry)
}

// Sweep removes expired entries eagerly to bound memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for fp, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// RunSweeper periodically sweeps expired entries until the context is done.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.log.Debug().Int("removed", removed).Msg("swept expired cache entries")
			}
		}
	}
}
