// Package resolve turns free-text or id-shaped strings into Client and
// Product ids for one batch operation.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookup is the storage side of resolution for a single entity kind.
type Lookup interface {
	// ExistsByID reports whether a document with id exists.
	ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error)
	// FindIDByName returns the first document whose name contains fragment,
	// case-insensitively.
	FindIDByName(ctx context.Context, fragment string) (primitive.ObjectID, bool, error)
}

// Result is the outcome of resolving one input. Found=false is the
// not-found sentinel and is cached like any other result.
type Result struct {
	ID    primitive.ObjectID
	Found bool
}

// Cache memoizes results for one batch call. Create one per batch and drop it
// when the batch ends; it must never be shared across requests.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Result
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Result)}
}

// Seed pre-populates the cache, mostly for tests.
func (c *Cache) Seed(input string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(input)] = r
}

// Len is the number of distinct inputs cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) get(input string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key(input)]
	return r, ok
}

func (c *Cache) put(input string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(input)] = r
}

func key(input string) string {
	return strings.TrimSpace(input)
}

// Resolver resolves inputs against one Lookup.
type Resolver struct {
	lookup Lookup
}

// New creates a resolver over lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve interprets input as an ObjectID first and falls back to a
// case-insensitive name match. An unmatched input is a Result with
// Found=false, not an error; errors are reserved for storage failures.
// A nil cache disables memoization.
func (r *Resolver) Resolve(ctx context.Context, cache *Cache, input string) (Result, error) {
	input = key(input)
	if input == "" {
		return Result{}, nil
	}
	if cache != nil {
		if res, ok := cache.get(input); ok {
			return res, nil
		}
	}

	res, err := r.resolve(ctx, input)
	if err != nil {
		return Result{}, err
	}
	if cache != nil {
		cache.put(input, res)
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, input string) (Result, error) {
	if id, err := primitive.ObjectIDFromHex(input); err == nil {
		exists, err := r.lookup.ExistsByID(ctx, id)
		if err != nil {
			return Result{}, fmt.Errorf("lookup by id %s: %w", input, err)
		}
		if exists {
			return Result{ID: id, Found: true}, nil
		}
	}

	id, found, err := r.lookup.FindIDByName(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("lookup by name %q: %w", input, err)
	}
	return Result{ID: id, Found: found}, nil
}
