// Package destination defines where rendered exports are delivered.
package destination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"expensetracker/internal/export"
)

var ErrUnknownDestination = errors.New("unknown export destination")

// Destination receives a rendered document and returns a reference to the
// stored copy (a path, a sheet range, a synthetic id).
type Destination interface {
	Name() string
	Deliver(ctx context.Context, doc export.Document) (ref string, err error)
}

// Set resolves destinations by name, falling back to a default.
type Set struct {
	byName map[string]Destination
	def    string
}

func NewSet(def string, dests ...Destination) *Set {
	s := &Set{byName: make(map[string]Destination, len(dests)), def: def}
	for _, d := range dests {
		s.byName[d.Name()] = d
	}
	return s
}

// Get returns the named destination; a blank name selects the default.
func (s *Set) Get(name string) (Destination, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.def
	}
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDestination, name)
	}
	return d, nil
}

func (s *Set) Default() string {
	return s.def
}

// Names lists the registered destinations in lexical order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
