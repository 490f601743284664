package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Collection is an ordered in-memory record set keyed by id. Reads return
// records in insertion order. All access goes through a single RWMutex.
type Collection[T any] struct {
	mu    sync.RWMutex
	idOf  func(T) string
	items []T
	index map[string]int
}

// NewCollection creates an empty collection using idOf to key records.
func NewCollection[T any](idOf func(T) string) *Collection[T] {
	return &Collection[T]{
		idOf:  idOf,
		index: make(map[string]int),
	}
}

func NewReportStore() *Collection[models.Report] {
	return NewCollection(func(r models.Report) string { return r.ID })
}

func NewAlertStore() *Collection[models.Alert] {
	return NewCollection(func(a models.Alert) string { return a.ID })
}

func NewPredictionStore() *Collection[models.Prediction] {
	return NewCollection(func(p models.Prediction) string { return p.ID })
}

var (
	_ ReportRepository     = (*Collection[models.Report])(nil)
	_ AlertRepository      = (*Collection[models.Alert])(nil)
	_ PredictionRepository = (*Collection[models.Prediction])(nil)
)

func (c *Collection[T]) Create(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := c.idOf(item)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[id]; exists {
		return fmt.Errorf("create %s: %w", id, ErrDuplicateID)
	}
	c.index[id] = len(c.items)
	c.items = append(c.items, item)
	return nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return zero, ErrNotFound
	}
	return c.items[i], nil
}

// Find returns every record for which match returns true. A nil match returns all records.
func (c *Collection[T]) Find(ctx context.Context, match func(T) bool) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if match == nil || match(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Update applies mutate to the stored record under the write lock. If mutate
// returns an error the record is left unchanged.
func (c *Collection[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return zero, ErrNotFound
	}
	updated := c.items[i]
	if err := mutate(&updated); err != nil {
		return zero, err
	}
	c.items[i] = updated
	return updated, nil
}

func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), nil
}
