// Package query keeps one cached copy of the remote todo collection and
// keeps it in step with mutations.
//
// The policy is invalidate-and-refetch: a successful mutation never patches
// the cached items, it marks them stale and a fresh List replaces them
// wholesale. At most one List is in flight per key; readers that arrive while
// it runs wait for it instead of issuing their own.
package query

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/Makepad-fr/tada/internal/model"
)

// CollectionKey is the query key of the todo collection.
const CollectionKey = "todo-collection"

// Store is the remote side the cache reads from and mutates through.
type Store interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, d model.Draft) (model.Item, error)
	Update(ctx context.Context, id model.ID, p model.Patch) (model.Item, error)
	ToggleCompleted(ctx context.Context, id model.ID, current bool) (model.Item, error)
	Delete(ctx context.Context, id model.ID) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithNotifier sets where mutation outcomes are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Cache) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger for state transitions and fetch failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache holds the collection snapshot. The zero value is not usable; call New.
type Cache struct {
	store    Store
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	// ctx lives until Close; background refetches run under it rather than
	// under any one caller's context, since their result is shared.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	flights singleflight.Group

	// settle serializes mutation outcome handling.
	settle sync.Mutex

	mu        sync.Mutex
	state     State
	items     []model.Item
	err       error
	updatedAt time.Time
	gen       uint64 // bumped by every invalidation
	stale     bool
	subs      map[int]chan Snapshot
	nextSub   int
	closed    bool
}

// New returns an idle cache over store. Nothing is fetched until the first
// Subscribe or Items call.
func New(store Store, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		store:    store,
		notifier: discard{},
		logger:   log.New(io.Discard),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		subs:     map[int]chan Snapshot{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state without blocking.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() Snapshot {
	return Snapshot{
		Key:       CollectionKey,
		State:     c.state,
		Items:     cloneItems(c.items),
		Err:       c.err,
		UpdatedAt: c.updatedAt,
	}
}

// Subscribe returns a channel that receives the current snapshot and then
// one snapshot per state change. Slow readers only see the latest one.
// The first subscription starts the initial load. Call the returned func to
// unsubscribe.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	idle := c.state == StateIdle
	c.mu.Unlock()

	if idle {
		c.refetch()
	}

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Items is the read query. A fresh Ready snapshot is served from memory;
// otherwise the caller waits on the shared in-flight fetch, starting one if
// none is running. ctx bounds only this caller's wait.
func (c *Cache) Items(ctx context.Context) ([]model.Item, error) {
	c.mu.Lock()
	if c.state == StateReady && !c.stale {
		items := cloneItems(c.items)
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	res := c.flights.DoChan(CollectionKey, c.load)
	select {
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		return cloneItems(r.Val.([]model.Item)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refetch invalidates the collection and waits for the refreshed items.
func (c *Cache) Refetch(ctx context.Context) ([]model.Item, error) {
	c.Invalidate()
	return c.Items(ctx)
}

// Invalidate discards the cached collection as stale and schedules a
// refetch. Invalidations that land while a fetch is running collapse into a
// single follow-up fetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stale = true
	c.setStateLocked(StateLoading)
	c.mu.Unlock()

	c.refetch()
}

// refetch runs a background fetch if the collection still needs one.
func (c *Cache) refetch() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.mu.Lock()
		needed := !c.closed && (c.stale || c.state == StateIdle)
		c.mu.Unlock()
		if !needed {
			return
		}
		if _, err := c.Items(c.ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("refetch failed", "key", CollectionKey, "err", err)
		}
	}()
}

// load is the body of the single in-flight fetch. If an invalidation arrives
// while List runs, that result is already stale: drop it and list again.
func (c *Cache) load() (any, error) {
	for {
		c.mu.Lock()
		gen := c.gen
		c.setStateLocked(StateLoading)
		c.mu.Unlock()

		items, err := c.store.List(c.ctx)

		c.mu.Lock()
		if c.gen != gen && !c.closed {
			c.mu.Unlock()
			c.logger.Debug("discarding stale fetch", "key", CollectionKey, "gen", gen)
			continue
		}
		// Later readers and invalidations must start a new flight, not join
		// this finished one.
		c.flights.Forget(CollectionKey)
		if err != nil {
			c.err = err
			c.stale = false
			c.setStateLocked(StateFailed)
			c.mu.Unlock()
			return nil, err
		}
		if items == nil {
			items = []model.Item{}
		}
		c.items = items
		c.err = nil
		c.stale = false
		c.updatedAt = c.now()
		c.setStateLocked(StateReady)
		c.mu.Unlock()
		return items, nil
	}
}

func (c *Cache) setStateLocked(s State) {
	if c.state != s {
		c.logger.Debug("state", "key", CollectionKey, "from", c.state, "to", s)
	}
	c.state = s
	if c.closed {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close stops background work and closes every subscription.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
