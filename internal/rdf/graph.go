package rdf

// Graph is a set of statements. Insertion order is kept so that
// serialized output is stable.
type Graph struct {
	triples []Triple
	index   map[Triple]struct{}
}

func NewGraph(triples ...Triple) *Graph {
	g := &Graph{index: make(map[Triple]struct{}, len(triples))}
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

// Add inserts t and reports whether it was new.
func (g *Graph) Add(t Triple) bool {
	if g.index == nil {
		g.index = make(map[Triple]struct{})
	}
	if _, ok := g.index[t]; ok {
		return false
	}
	g.index[t] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

func (g *Graph) Has(t Triple) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[t]
	return ok
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.triples)
}

func (g *Graph) Empty() bool {
	return g.Len() == 0
}

// Triples returns a copy of the statements in insertion order.
func (g *Graph) Triples() []Triple {
	if g == nil {
		return nil
	}
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Merge adds every statement of other into g.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, t := range other.triples {
		g.Add(t)
	}
}

// Union returns a new graph holding the statements of all graphs.
func Union(graphs ...*Graph) *Graph {
	out := NewGraph()
	for _, g := range graphs {
		out.Merge(g)
	}
	return out
}

// About returns the statements whose subject is s.
func (g *Graph) About(s Term) []Triple {
	if g == nil {
		return nil
	}
	var out []Triple
	for _, t := range g.triples {
		if t.Subject == s {
			out = append(out, t)
		}
	}
	return out
}

// Equal reports set equality, ignoring order.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for _, t := range g.Triples() {
		if !other.Has(t) {
			return false
		}
	}
	return true
}
