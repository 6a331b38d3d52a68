package investigator

import (
	"context"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/google/uuid"
)

// Null gives up gracefully: the role resolves to an empty graph.
type Null struct{}

func (Null) Pursue(_ context.Context, inv *domain.Investigation, role domain.Role) (Result, error) {
	id, ok := inv.ContextFor(role)
	if _, present := inv.Graph(id); !ok || present {
		id = domain.ContextID("urn:uuid:" + uuid.NewString())
	}
	if err := inv.Insert(role, id, rdf.NewGraph()); err != nil {
		return Result{Outcome: OutcomeNoOp}, err
	}
	return Result{Outcome: OutcomeInserted, Context: id}, nil
}
