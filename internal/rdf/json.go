package rdf

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// statement is the JSON/YAML shape of a triple. Each position holds the
// term in N-Triples syntax so literals keep their datatype and language.
type statement struct {
	Subject   string `json:"subject" yaml:"subject"`
	Predicate string `json:"predicate" yaml:"predicate"`
	Object    string `json:"object" yaml:"object"`
}

type document struct {
	Statements []statement `json:"statements" yaml:"statements"`
}

func toDocument(g *Graph) document {
	doc := document{Statements: make([]statement, 0, g.Len())}
	for _, t := range g.Triples() {
		doc.Statements = append(doc.Statements, statement{
			Subject:   t.Subject.String(),
			Predicate: t.Predicate.String(),
			Object:    t.Object.String(),
		})
	}
	return doc
}

func fromDocument(doc document) (*Graph, error) {
	g := NewGraph()
	for i, st := range doc.Statements {
		t, err := ParseStatement(st.Subject, st.Predicate, st.Object)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		g.Add(t)
	}
	return g, nil
}

func DecodeJSON(data []byte) (*Graph, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func EncodeJSON(g *Graph) ([]byte, error) {
	return json.Marshal(toDocument(g))
}

func DecodeYAML(data []byte) (*Graph, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func EncodeYAML(g *Graph) ([]byte, error) {
	return yaml.Marshal(toDocument(g))
}
