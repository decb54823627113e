package readthrough

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/kv"
)

const (
	lockTTL  = 30 * time.Second
	cacheTTL = time.Hour

	defaultPollInterval = 100 * time.Millisecond
	defaultMaxPolls     = 30
)

// New creates a Guard over the given store. Values are stored as JSON
// under the caller's key; a companion "lock:" key marks an in-flight fetch
// so that, across a whole fleet of processes, at most one supplier runs
// per key within a TTL window.
func New[V any](store kv.Store) *Guard[V] {
	return &Guard[V]{
		store:        store,
		lockTTL:      lockTTL,
		cacheTTL:     cacheTTL,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
}

type Guard[V any] struct {
	store kv.Store

	lockTTL      time.Duration
	cacheTTL     time.Duration
	pollInterval time.Duration
	maxPolls     int
}

// GetOrFetch returns the cached value for key, or runs supplier to
// populate it. Concurrent callers for the same key, here or in another
// process, block on the holder's lock and pick up the value it writes;
// they only fetch for themselves once the poll deadline lapses. If the
// store itself is down the guard degrades to a direct fetch rather than
// failing the request.
func (g *Guard[V]) GetOrFetch(ctx context.Context, key string, supplier func(context.Context) (V, error)) (V, error) {
	var zero V

	if value, ok := g.lookup(ctx, key); ok {
		return value, nil
	}

	lockKey := "lock:" + key
	acquired, err := g.store.SetIfAbsent(ctx, lockKey, []byte{1}, g.lockTTL)
	if err != nil {
		log.Warnf("lock store unavailable for '%s', fetching without stampede guard: %s", key, err)
		return g.fetchAndCache(ctx, key, supplier)
	}

	if acquired {
		defer func() {
			// The lock must come off even when the fetch failed;
			// a failed delete is survivable because the lock
			// expires on its own.
			if err := g.store.Delete(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warnf("error releasing lock '%s': %s", lockKey, err)
			}
		}()

		// Double-check: another holder may have finished between our
		// miss and our lock acquisition.
		if value, ok := g.lookup(ctx, key); ok {
			return value, nil
		}
		return g.fetchAndCache(ctx, key, supplier)
	}

	for poll := 0; poll < g.maxPolls; poll++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(g.pollInterval):
		}
		if value, ok := g.lookup(ctx, key); ok {
			return value, nil
		}
	}

	// Deadline escape hatch: the holder may have crashed without
	// releasing.
	log.Warnf("gave up waiting on the lock holder for '%s', fetching directly", key)
	return g.fetchAndCache(ctx, key, supplier)
}

func (g *Guard[V]) lookup(ctx context.Context, key string) (V, bool) {
	var zero V

	bs, err := g.store.Get(ctx, key)
	if errors.Is(err, kv.ErrMiss) {
		return zero, false
	} else if err != nil {
		log.Warnf("cache read error for '%s': %s", key, err)
		return zero, false
	}

	var value V
	if err := json.Unmarshal(bs, &value); err != nil {
		log.Warnf("undecodable cache entry for '%s': %s", key, err)
		return zero, false
	}
	return value, true
}

func (g *Guard[V]) fetchAndCache(ctx context.Context, key string, supplier func(context.Context) (V, error)) (V, error) {
	var zero V

	value, err := supplier(ctx)
	if err != nil {
		return zero, err
	}

	bs, err := json.Marshal(value)
	if err != nil {
		log.Warnf("error encoding value for '%s': %s", key, err)
		return value, nil
	}
	// The entry is written as one atomic value; once present it is
	// authoritative for its remaining TTL.
	if err := g.store.Set(ctx, key, bs, g.cacheTTL); err != nil {
		log.Warnf("error caching '%s': %s", key, err)
	}
	return value, nil
}
