package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/google/uuid"
)

// MemoryStore keeps contexts in process memory. Used by the CLI and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	subjects map[domain.Subject]map[domain.Role]domain.StoredContext
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subjects: make(map[domain.Subject]map[domain.Role]domain.StoredContext)}
}

func (s *MemoryStore) Save(_ context.Context, c *domain.StoredContext) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.FetchedAt.IsZero() {
		c.FetchedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byRole, ok := s.subjects[c.Subject]
	if !ok {
		byRole = make(map[domain.Role]domain.StoredContext)
		s.subjects[c.Subject] = byRole
	}
	for role, existing := range byRole {
		if existing.ContextID == c.ContextID {
			delete(byRole, role)
		}
	}
	stored := *c
	stored.Graph = rdf.Union(c.Graph)
	byRole[c.Role] = stored
	return nil
}

func (s *MemoryStore) ListBySubject(_ context.Context, subject domain.Subject) ([]domain.StoredContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byRole := s.subjects[subject]
	out := make([]domain.StoredContext, 0, len(byRole))
	for _, c := range byRole {
		c.Graph = rdf.Union(c.Graph)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func (s *MemoryStore) DeleteBySubject(_ context.Context, subject domain.Subject) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.subjects[subject]))
	delete(s.subjects, subject)
	return n, nil
}
