package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/observability"
)

const (
	feedCachePrefix      = "lostfound:feed:v2:"
	feedGenerationPrefix = "lostfound:feed:gen:"
	generationTTL        = 24 * time.Hour
)

// FeedCache keeps short-lived copies of list responses in Redis. Every
// namespace has a generation counter and each generation is one hash, so a
// write drops every cached page of a namespace with a single INCR. Readers
// pass the generation they saw on Get back to Set; an entry computed before a
// write therefore lands in a generation nobody reads any more.
// A nil *FeedCache or a nil client turns every call into a miss.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewFeedCache constructs a Redis backed list cache.
func NewFeedCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *FeedCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &FeedCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "feed_cache").Logger(),
	}
}

func (c *FeedCache) enabled() bool {
	return c != nil && c.client != nil
}

func generationKey(namespace string) string {
	return feedGenerationPrefix + namespace
}

func entriesKey(namespace string, generation int64) string {
	return feedCachePrefix + namespace + ":" + strconv.FormatInt(generation, 10)
}

// Get decodes the cached value of field into dest. It returns the namespace
// generation it read, to be handed to Set when the caller fills a miss, and
// whether the entry was found. A negative generation means Set must be skipped.
func (c *FeedCache) Get(ctx context.Context, namespace, field string, dest any) (int64, bool) {
	if !c.enabled() {
		return -1, false
	}

	generation, err := c.client.Get(ctx, generationKey(namespace)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("namespace", namespace).Msg("feed cache generation lookup failed")
		c.count(namespace, "miss")
		return -1, false
	}

	raw, err := c.client.HGet(ctx, entriesKey(namespace, generation), field).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("namespace", namespace).Msg("feed cache lookup failed")
		}
		c.count(namespace, "miss")
		return generation, false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn().Err(err).Str("namespace", namespace).Msg("discarding undecodable cache entry")
		c.count(namespace, "miss")
		return generation, false
	}

	c.count(namespace, "hit")
	return generation, true
}

// Set stores value under field in the given generation of namespace and
// refreshes that generation's expiry.
func (c *FeedCache) Set(ctx context.Context, namespace string, generation int64, field string, value any) {
	if !c.enabled() || generation < 0 {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode cache entry")
		return
	}

	key := entriesKey(namespace, generation)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, payload)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("namespace", namespace).Msg("failed to cache list")
	}
}

// Invalidate moves each namespace to a fresh generation. Entries of older
// generations are left to expire.
func (c *FeedCache) Invalidate(ctx context.Context, namespaces ...string) {
	if !c.enabled() || len(namespaces) == 0 {
		return
	}

	pipe := c.client.TxPipeline()
	for _, namespace := range namespaces {
		pipe.Incr(ctx, generationKey(namespace))
		pipe.Expire(ctx, generationKey(namespace), generationTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Strs("namespaces", namespaces).Msg("failed to invalidate feed cache")
	}
}

func (c *FeedCache) count(namespace, outcome string) {
	observability.FeedCacheRequests().WithLabelValues(namespaceLabel(namespace), outcome).Inc()
}

// namespaceLabel keeps per-item namespaces out of metric label values.
func namespaceLabel(namespace string) string {
	prefix, _, _ := strings.Cut(namespace, ":")
	return prefix
}
