package storage

import "context"

type compositeStore struct {
	stores []Store
}

var _ Store = (*compositeStore)(nil)

// NewComposite returns a Store that chains multiple stores together.
// Get checks stores in order and returns the first hit.
// Set writes to all stores and returns the first error.
// At least one store must be provided; panics if empty.
func NewComposite(stores ...Store) Store {
	if len(stores) == 0 {
		panic("storage: NewComposite requires at least one store")
	}
	return &compositeStore{stores: stores}
}

func (c *compositeStore) Get(ctx context.Context, key string) (string, bool, error) {
	for _, store := range c.stores {
		val, found, err := store.Get(ctx, key)
		if err != nil {
			return "", false, err
		}
		if found {
			return val, true, nil
		}
	}
	return "", false, nil
}

func (c *compositeStore) Set(ctx context.Context, key string, value string) error {
	var firstErr error
	for _, store := range c.stores {
		if err := store.Set(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeStore) Close() error {
	var firstErr error
	for _, store := range c.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
