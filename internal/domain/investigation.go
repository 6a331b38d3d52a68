package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Harshitk-cp/credence/internal/rdf"
)

// Subject is the URI of the entity under investigation.
type Subject string

func (s Subject) String() string { return string(s) }

// Term returns the subject as an IRI term.
func (s Subject) Term() rdf.Term { return rdf.IRI(string(s)) }

// ParseSubject checks that raw is an absolute URI.
func ParseSubject(raw string) (Subject, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSubject)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidSubject, raw)
	}
	return Subject(raw), nil
}

// Role tags why a context is trusted the way it is.
type Role string

const (
	RoleSubject Role = "subject"
	RoleLocal   Role = "local"
)

func (r Role) String() string { return string(r) }

// ContextID names one provenance source's graph.
type ContextID string

func (c ContextID) String() string { return string(c) }

// Investigation is the working state of one subject's resolution. It is
// owned by a single goroutine for its whole lifetime.
type Investigation struct {
	subject Subject
	roles   map[Role]ContextID
	results map[ContextID]*rdf.Graph
}

func NewInvestigation(subject Subject) *Investigation {
	return &Investigation{
		subject: subject,
		roles:   make(map[Role]ContextID),
		results: make(map[ContextID]*rdf.Graph),
	}
}

func (inv *Investigation) Subject() Subject { return inv.subject }

// Assign maps role to an already known context id.
func (inv *Investigation) Assign(role Role, id ContextID) {
	inv.roles[role] = id
}

// Unassign drops the role mapping. The context's graph, if any, stays a
// candidate.
func (inv *Investigation) Unassign(role Role) {
	delete(inv.roles, role)
}

// Insert adds a context's graph and maps role to it. A context id is bound
// to exactly one graph for the lifetime of the investigation.
func (inv *Investigation) Insert(role Role, id ContextID, g *rdf.Graph) error {
	if _, ok := inv.results[id]; ok {
		return fmt.Errorf("%w: %s", ErrContextExists, id)
	}
	if g == nil {
		g = rdf.NewGraph()
	}
	inv.results[id] = g
	if role != "" {
		inv.roles[role] = id
	}
	return nil
}

// Remove drops a context and every role pointing at it.
func (inv *Investigation) Remove(id ContextID) {
	delete(inv.results, id)
	for role, target := range inv.roles {
		if target == id {
			delete(inv.roles, role)
		}
	}
}

func (inv *Investigation) ContextFor(role Role) (ContextID, bool) {
	id, ok := inv.roles[role]
	return id, ok
}

// HasResult reports whether the role's context has a graph.
func (inv *Investigation) HasResult(role Role) bool {
	id, ok := inv.roles[role]
	if !ok {
		return false
	}
	_, ok = inv.results[id]
	return ok
}

func (inv *Investigation) Graph(id ContextID) (*rdf.Graph, bool) {
	g, ok := inv.results[id]
	return g, ok
}

// Roles returns a copy of the role map.
func (inv *Investigation) Roles() map[Role]ContextID {
	out := make(map[Role]ContextID, len(inv.roles))
	for r, id := range inv.roles {
		out[r] = id
	}
	return out
}

// Contexts returns the candidate context ids in sorted order.
func (inv *Investigation) Contexts() []ContextID {
	out := make([]ContextID, 0, len(inv.results))
	for id := range inv.results {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks that every mapped role points at a present context.
func (inv *Investigation) Validate() error {
	for role, id := range inv.roles {
		if _, ok := inv.results[id]; !ok {
			return fmt.Errorf("%w: role %s -> %s", ErrRoleContextMissing, role, id)
		}
	}
	return nil
}

// CredibleGraph unions the graphs of the given contexts. Unknown ids are
// ignored.
func (inv *Investigation) CredibleGraph(ids []ContextID) *rdf.Graph {
	graphs := make([]*rdf.Graph, 0, len(ids))
	for _, id := range ids {
		if g, ok := inv.results[id]; ok {
			graphs = append(graphs, g)
		}
	}
	return rdf.Union(graphs...)
}
