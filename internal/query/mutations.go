package query

import (
	"context"

	"github.com/Makepad-fr/tada/internal/model"
)

// Create adds an item. On success the collection is invalidated; on failure
// the cached collection is left exactly as it was.
func (c *Cache) Create(ctx context.Context, d model.Draft) (model.Item, error) {
	var it model.Item
	err := c.mutate(OpCreate, func() error {
		if err := model.ValidateTitle(d.Title); err != nil {
			return err
		}
		var err error
		it, err = c.store.Create(ctx, d)
		return err
	})
	return it, err
}

// Update changes the title and/or content of an item.
func (c *Cache) Update(ctx context.Context, id model.ID, p model.Patch) (model.Item, error) {
	var it model.Item
	err := c.mutate(OpUpdate, func() error {
		if p.Title != nil {
			if err := model.ValidateTitle(*p.Title); err != nil {
				return err
			}
		}
		var err error
		it, err = c.store.Update(ctx, id, p)
		return err
	})
	return it, err
}

// ToggleCompleted flips the completion flag from current, the value the
// caller last saw. Two racing toggles both write their own negation.
func (c *Cache) ToggleCompleted(ctx context.Context, id model.ID, current bool) (model.Item, error) {
	var it model.Item
	err := c.mutate(OpToggle, func() error {
		var err error
		it, err = c.store.ToggleCompleted(ctx, id, current)
		return err
	})
	return it, err
}

// Delete removes an item.
func (c *Cache) Delete(ctx context.Context, id model.ID) error {
	return c.mutate(OpDelete, func() error {
		return c.store.Delete(ctx, id)
	})
}

// mutate runs call, reports the outcome, and invalidates on success.
// Mutations themselves may overlap; only their outcome handling is serialized.
func (c *Cache) mutate(op Op, call func() error) error {
	err := call()

	c.settle.Lock()
	defer c.settle.Unlock()

	n := Notify(op, err)
	if err != nil {
		c.logger.Debug("mutation failed", "op", op, "err", err)
	} else {
		c.logger.Debug("mutation ok", "op", op)
	}
	c.notifier.Notify(n)
	if err == nil {
		c.Invalidate()
	}
	return err
}
