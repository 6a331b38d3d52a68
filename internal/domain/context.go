package domain

import (
	"context"
	"time"

	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/google/uuid"
)

// StoredContext is a persisted context graph for a subject.
type StoredContext struct {
	ID        uuid.UUID  `json:"id"`
	Subject   Subject    `json:"subject"`
	ContextID ContextID  `json:"context_id"`
	Role      Role       `json:"role,omitempty"`
	Graph     *rdf.Graph `json:"-"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Stale reports whether the context is older than ttl. A zero ttl never
// expires.
func (c *StoredContext) Stale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.FetchedAt) > ttl
}

type ContextStore interface {
	// Save stores c, replacing any context previously held for the same
	// subject and role.
	Save(ctx context.Context, c *StoredContext) error
	ListBySubject(ctx context.Context, subject Subject) ([]StoredContext, error)
	DeleteBySubject(ctx context.Context, subject Subject) (int64, error)
}
