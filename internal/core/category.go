package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Category is a free-text expense label. Registry membership is checked at
// entry points only; stored records may carry labels the registry lacks.
type Category string

// AllCategories is the filter selector matching every category.
const AllCategories Category = "All"

// DefaultCategories is the initial registry content.
func DefaultCategories() []Category {
	return []Category{"Food", "Transportation", "Entertainment", "Shopping", "Bills", "Other"}
}

// Registry is the ordered set of known categories.
type Registry struct {
	mu   sync.RWMutex
	list []Category
}

// NewRegistry builds a registry from labels, trimming whitespace and
// dropping blanks and duplicates. A nil or empty input yields the defaults.
func NewRegistry(labels ...Category) *Registry {
	if len(labels) == 0 {
		labels = DefaultCategories()
	}
	r := &Registry{}
	for _, l := range labels {
		l = Category(strings.TrimSpace(string(l)))
		if l == "" || slices.Contains(r.list, l) {
			continue
		}
		r.list = append(r.list, l)
	}
	return r
}

// List returns a copy of the categories in registry order.
func (r *Registry) List() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.list)
}

// Has reports exact, case-sensitive membership.
func (r *Registry) Has(c Category) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.list, c)
}

// Len returns the number of categories
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

// Validate trims label and checks it belongs to the registry.
func (r *Registry) Validate(label string) (Category, error) {
	c := Category(strings.TrimSpace(label))
	if c == "" {
		return "", ErrEmptyCategory
	}
	if !r.Has(c) {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// ValidateSelector accepts AllCategories in addition to registry members.
func (r *Registry) ValidateSelector(label string) (Category, error) {
	if strings.TrimSpace(label) == "" || Category(strings.TrimSpace(label)) == AllCategories {
		return AllCategories, nil
	}
	return r.Validate(label)
}

// ValidateSet checks every label of an export selection. A nil set selects
// every category and passes unchanged.
func (r *Registry) ValidateSet(labels []Category) ([]Category, error) {
	if labels == nil {
		return nil, nil
	}
	out := make([]Category, 0, len(labels))
	for _, l := range labels {
		c, err := r.Validate(string(l))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, l)
		}
		out = append(out, c)
	}
	return out, nil
}

// Add appends a new category at the end of the registry.
func (r *Registry) Add(label string) (Category, error) {
	c := Category(strings.TrimSpace(label))
	if c == "" {
		return "", ErrEmptyCategory
	}
	if c == AllCategories {
		return "", ErrDuplicateCategory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.list, c) {
		return "", ErrDuplicateCategory
	}
	r.list = append(r.list, c)
	return c, nil
}

// Remove deletes a category. Existing expenses keep their label.
func (r *Registry) Remove(label string) error {
	c := Category(strings.TrimSpace(label))
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.list, c)
	if i < 0 {
		return ErrUnknownCategory
	}
	r.list = slices.Delete(r.list, i, i+1)
	return nil
}
