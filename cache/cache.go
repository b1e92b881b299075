// Package cache memoizes sheet reads behind two tiers: a short-lived
// in-process map for repeated requests within one page transition, and a
// longer-lived Redis tier that survives process restarts. The remote store
// is slow and rate-limited, so every avoided read matters.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"classboard-api/sheets"
)

// Reader fetches rows from the remote store on a cache miss.
type Reader interface {
	Read(ctx context.Context, sheet string) ([]sheets.Record, error)
}

const redisKeyPrefix = "sheet:"

type memEntry struct {
	rows      []sheets.Record
	fetchedAt time.Time
}

// Cache is the two-tier sheet cache. The memory tier is guarded by a mutex;
// the Redis tier relies on native key expiry. A nil Redis client disables
// the durable tier.
type Cache struct {
	reader   Reader
	redis    *redis.Client
	memTTL   time.Duration
	redisTTL time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	mem   map[string]memEntry
	group singleflight.Group

	// now is overridable in tests to step the memory tier's clock.
	now func() time.Time
}

// New creates a Cache over the given reader. memTTL bounds the in-process
// tier, redisTTL the durable tier; redisTTL is expected to be the longer of
// the two.
func New(reader Reader, client *redis.Client, memTTL, redisTTL time.Duration, logger *log.Logger) *Cache {
	if reader == nil {
		panic("cache.New: reader is nil")
	}
	if memTTL <= 0 {
		memTTL = 30 * time.Second
	}
	if redisTTL <= 0 {
		redisTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{
		reader:   reader,
		redis:    client,
		memTTL:   memTTL,
		redisTTL: redisTTL,
		logger:   logger,
		mem:      map[string]memEntry{},
		now:      time.Now,
	}
}

// Get returns the rows of the named sheet, consulting the memory tier, then
// Redis, then the remote store. Concurrent requests for the same sheet are
// coalesced into one remote read. Failed reads are never cached.
func (c *Cache) Get(ctx context.Context, sheet string) ([]sheets.Record, error) {
	if rows, ok := c.loadFromMemory(sheet); ok {
		return rows, nil
	}
	if rows, ok := c.loadFromRedis(ctx, sheet); ok {
		c.storeInMemory(sheet, rows)
		return rows, nil
	}

	v, err, _ := c.group.Do(sheet, func() (any, error) {
		rows, err := c.reader.Read(ctx, sheet)
		if err != nil {
			return nil, err
		}
		c.store(ctx, sheet, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]sheets.Record), nil
}

// GetFresh bypasses both tiers and reads the remote store directly,
// repopulating the tiers on success. Credential reads go through here so a
// login never trusts a stale row.
func (c *Cache) GetFresh(ctx context.Context, sheet string) ([]sheets.Record, error) {
	rows, err := c.reader.Read(ctx, sheet)
	if err != nil {
		return nil, err
	}
	c.store(ctx, sheet, rows)
	return rows, nil
}

// Invalidate drops the sheet from both tiers. Called after every successful
// append to the sheet; the remote store has no push-based invalidation.
func (c *Cache) Invalidate(ctx context.Context, sheet string) {
	c.mu.Lock()
	delete(c.mem, sheet)
	c.mu.Unlock()

	if c.redis != nil {
		if err := c.redis.Del(ctx, redisKeyPrefix+sheet).Err(); err != nil {
			c.logger.WithFields(log.Fields{"sheet": sheet, "error": err.Error()}).Warn("cache.invalidate.redis")
		}
	}
}

// Clear wipes both tiers. Called on logout.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.mem = map[string]memEntry{}
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WithField("error", err.Error()).Warn("cache.clear.scan")
		return
	}
	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			c.logger.WithField("error", err.Error()).Warn("cache.clear.redis")
		}
	}
}

func (c *Cache) loadFromMemory(sheet string) ([]sheets.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.mem[sheet]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > c.memTTL {
		delete(c.mem, sheet)
		return nil, false
	}
	return e.rows, true
}

func (c *Cache) loadFromRedis(ctx context.Context, sheet string) ([]sheets.Record, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, redisKeyPrefix+sheet).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the remote store without failing.
			_ = c.redis.Del(ctx, redisKeyPrefix+sheet).Err()
		}
		return nil, false
	}
	var rows []sheets.Record
	if err := json.Unmarshal(data, &rows); err != nil {
		_ = c.redis.Del(ctx, redisKeyPrefix+sheet).Err()
		return nil, false
	}
	return rows, true
}

func (c *Cache) store(ctx context.Context, sheet string, rows []sheets.Record) {
	c.storeInMemory(sheet, rows)
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+sheet, data, c.redisTTL).Err(); err != nil {
		c.logger.WithFields(log.Fields{"sheet": sheet, "error": err.Error()}).Warn("cache.store.redis")
	}
}

func (c *Cache) storeInMemory(sheet string, rows []sheets.Record) {
	c.mu.Lock()
	c.mem[sheet] = memEntry{rows: rows, fetchedAt: c.now()}
	c.mu.Unlock()
}
