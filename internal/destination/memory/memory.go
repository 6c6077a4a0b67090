// Package memory keeps delivered exports in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/export"
)

const Name = "memory"

type Store struct {
	mu   sync.Mutex
	docs []export.Document
}

func New() *Store {
	return &Store{}
}

func (s *Store) Name() string { return Name }

// Deliver stores a copy of the document and returns a synthetic reference.
func (s *Store) Deliver(ctx context.Context, doc export.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc.Body = append([]byte(nil), doc.Body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return fmt.Sprintf("mem:%d", len(s.docs)), nil
}

// Documents returns the delivered documents in delivery order.
func (s *Store) Documents() []export.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Document(nil), s.docs...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
