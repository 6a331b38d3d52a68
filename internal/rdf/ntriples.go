package rdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	nt "github.com/knakk/rdf"
)

const xsdString = "http://www.w3.org/2001/XMLSchema#string"

// DecodeNTriples parses an N-Triples document.
func DecodeNTriples(data []byte) (*Graph, error) {
	g := NewGraph()
	dec := nt.NewTripleDecoder(bytes.NewReader(data), nt.NTriples)
	for n := 1; ; n++ {
		st, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", n, err)
		}

		t := NewTriple(fromTerm(st.Subj), fromTerm(st.Pred), fromTerm(st.Obj))
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("statement %d: %w", n, err)
		}
		g.Add(t)
	}
}

func fromTerm(t nt.Term) Term {
	switch v := t.(type) {
	case nt.IRI:
		return IRI(v.String())
	case nt.Blank:
		return Blank(strings.TrimPrefix(v.String(), "_:"))
	case nt.Literal:
		if v.Lang() != "" {
			return LangLiteral(v.String(), v.Lang())
		}
		if dt := v.DataType.String(); dt != "" && dt != xsdString {
			return TypedLiteral(v.String(), dt)
		}
		return Literal(v.String())
	}
	return Term{Kind: TermKind(-1), Value: t.String()}
}

// EncodeNTriples writes one statement per line.
func EncodeNTriples(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	for _, t := range g.Triples() {
		buf.WriteString(t.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ParseStatement parses one statement given as three terms in N-Triples
// syntax, the form the store and the JSON document keep them in.
func ParseStatement(subject, predicate, object string) (Triple, error) {
	line := subject + " " + predicate + " " + object + " .\n"
	g, err := DecodeNTriples([]byte(line))
	if err != nil {
		return Triple{}, err
	}
	if g.Len() != 1 {
		return Triple{}, fmt.Errorf("expected one statement, got %d", g.Len())
	}
	return g.Triples()[0], nil
}
