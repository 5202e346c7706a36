// Package catalog holds the in-memory registry of pattern records.
//
// Records keep insertion order: listing by category returns records in
// the order they were registered. Reads take a shared lock; Register and
// ReviseConfidence are serialized behind the write lock.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/arbiter/internal/ir"
)

// Catalog is the registry of named pattern records.
//
// Thread-safety: all methods are safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	records []ir.PatternRecord // insertion order
	index   map[string]int     // name -> position in records
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Register inserts a pattern record.
// Fails with DUPLICATE_NAME if the name is already present and with
// INVALID_INPUT if the record is malformed.
func (c *Catalog) Register(rec ir.PatternRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[rec.Name]; ok {
		return ir.NewDuplicateName("register", rec.Name)
	}
	c.index[rec.Name] = len(c.records)
	c.records = append(c.records, rec.Clone())
	return nil
}

// Get returns the named record or a NOT_FOUND error.
func (c *Catalog) Get(name string) (ir.PatternRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[name]
	if !ok {
		return ir.PatternRecord{}, ir.NewNotFound("get", "pattern", name)
	}
	return c.records[i].Clone(), nil
}

// ReviseConfidence replaces the confidence of an existing record.
func (c *Catalog) ReviseConfidence(name string, confidence float64) error {
	if !ir.ValidConfidence(confidence) {
		return ir.NewInvalidInput("revise confidence",
			fmt.Sprintf("confidence %v outside [0,100]", confidence))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[name]
	if !ok {
		return ir.NewNotFound("revise confidence", "pattern", name)
	}
	c.records[i].Confidence = confidence
	return nil
}

// ListByCategory returns the records of one category in insertion order.
// An unknown category is a NOT_FOUND error; a known category with no
// records yields an empty slice.
func (c *Catalog) ListByCategory(category ir.Category) ([]ir.PatternRecord, error) {
	if !category.Valid() {
		return nil, ir.NewNotFound("list by category", "category", string(category))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []ir.PatternRecord{}
	for _, rec := range c.records {
		if rec.Category == category {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// FilterByMinConfidence returns every record with confidence >= threshold,
// sorted by confidence descending and then name ascending.
func (c *Catalog) FilterByMinConfidence(threshold float64) []ir.PatternRecord {
	c.mu.RLock()
	out := []ir.PatternRecord{}
	for _, rec := range c.records {
		if rec.Confidence >= threshold {
			out = append(out, rec.Clone())
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// All returns every record in insertion order.
func (c *Catalog) All() []ir.PatternRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ir.PatternRecord, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Clone()
	}
	return out
}

// Len returns the number of registered records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func validate(rec ir.PatternRecord) error {
	if rec.Name == "" {
		return ir.NewInvalidInput("register", "pattern name must not be empty")
	}
	if !rec.Category.Valid() {
		return ir.NewInvalidInput("register",
			fmt.Sprintf("pattern %q has unknown category %q", rec.Name, rec.Category))
	}
	if !ir.ValidConfidence(rec.Confidence) {
		return ir.NewInvalidInput("register",
			fmt.Sprintf("pattern %q confidence %v outside [0,100]", rec.Name, rec.Confidence))
	}
	for i, ph := range rec.Phases {
		if ph.Name == "" {
			return ir.NewInvalidInput("register",
				fmt.Sprintf("pattern %q phase %d has no name", rec.Name, i))
		}
	}
	return nil
}
