package credence

import (
	"github.com/Harshitk-cp/credence/internal/domain"
)

// Policy selects the credible contexts from the candidates. Implementations
// never mutate their inputs and always return a subset of candidates.
type Policy interface {
	Credible(candidates []domain.ContextID, roles map[domain.Role]domain.ContextID) []domain.ContextID
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(candidates []domain.ContextID, roles map[domain.Role]domain.ContextID) []domain.ContextID

func (f PolicyFunc) Credible(candidates []domain.ContextID, roles map[domain.Role]domain.ContextID) []domain.ContextID {
	return f(candidates, roles)
}

// Any trusts every candidate.
type Any struct{}

func (Any) Credible(candidates []domain.ContextID, _ map[domain.Role]domain.ContextID) []domain.ContextID {
	return clone(candidates)
}

// PreferIfAvailable trusts only the role's context when it is a candidate,
// and everything otherwise.
type PreferIfAvailable struct {
	Role domain.Role
}

func (p PreferIfAvailable) Credible(candidates []domain.ContextID, roles map[domain.Role]domain.ContextID) []domain.ContextID {
	if id, ok := roleCandidate(p.Role, candidates, roles); ok {
		return []domain.ContextID{id}
	}
	return clone(candidates)
}

// RejectUnless trusts every candidate when the role's context is among
// them, and nothing otherwise.
type RejectUnless struct {
	Role domain.Role
}

func (p RejectUnless) Credible(candidates []domain.ContextID, roles map[domain.Role]domain.ContextID) []domain.ContextID {
	if _, ok := roleCandidate(p.Role, candidates, roles); ok {
		return clone(candidates)
	}
	return []domain.ContextID{}
}

func roleCandidate(role domain.Role, candidates []domain.ContextID, roles map[domain.Role]domain.ContextID) (domain.ContextID, bool) {
	id, ok := roles[role]
	if !ok {
		return "", false
	}
	for _, c := range candidates {
		if c == id {
			return id, true
		}
	}
	return "", false
}

func clone(ids []domain.ContextID) []domain.ContextID {
	out := make([]domain.ContextID, len(ids))
	copy(out, ids)
	return out
}
