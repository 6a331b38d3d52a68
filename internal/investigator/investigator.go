package investigator

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/registry"
)

// Outcome classifies one pursuit.
type Outcome string

const (
	// OutcomeInserted means a new context was added to the investigation.
	OutcomeInserted Outcome = "inserted"
	// OutcomeNoOp means the source had nothing to offer; not an error.
	OutcomeNoOp Outcome = "noop"
	// OutcomeUntrusted means the source is unreliable (domain.ErrNotCredible).
	OutcomeUntrusted Outcome = "untrusted"
	// OutcomeUnsupported means no strategy serves the role
	// (domain.ErrNoCredibleResults).
	OutcomeUnsupported Outcome = "unsupported"
	// OutcomeCancelled means the caller's context ended the pursuit.
	OutcomeCancelled Outcome = "cancelled"
)

type Result struct {
	Outcome Outcome          `json:"outcome"`
	Context domain.ContextID `json:"context,omitempty"`
	Status  int              `json:"status,omitempty"`
}

// Investigator tries to produce the graph for one role of an investigation.
// It adds at most one context; on any outcome other than OutcomeInserted the
// investigation is left untouched.
type Investigator interface {
	Pursue(ctx context.Context, inv *domain.Investigation, role domain.Role) (Result, error)
}

// Investigator names
const (
	NameNull registry.Name = "null"
	NameHTTP registry.Name = "http"
)

// Purpose is used in unknown-name errors.
const Purpose = "investigator"

// NewRegistry registers the built-in investigators.
func NewRegistry(h *HTTP) *registry.Registry[Investigator] {
	r := registry.New[Investigator](Purpose)
	r.Register(NameNull, Null{})
	if h != nil {
		r.Register(NameHTTP, h)
	}
	return r
}

// Unsupported is the fallback for roles that have no investigator.
type Unsupported struct{}

func (Unsupported) Pursue(_ context.Context, _ *domain.Investigation, role domain.Role) (Result, error) {
	return Result{Outcome: OutcomeUnsupported}, fmt.Errorf("%w: no investigator for role %s", domain.ErrNoCredibleResults, role)
}
