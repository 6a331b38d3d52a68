package rdf

import (
	"fmt"
	"strings"
)

type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is one position of a statement. Terms are comparable so that
// triples can key a map.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Language string
}

func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

func Literal(v string) Term {
	return Term{Kind: KindLiteral, Value: v}
}

func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Language: strings.ToLower(lang)}
}

func TypedLiteral(v, datatype string) Term {
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	default:
		return fmt.Sprintf("?%s", t.Value)
	}
}

type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Validate checks term positions: subjects are IRIs or blank nodes,
// predicates are IRIs.
func (t Triple) Validate() error {
	if t.Subject.Kind == KindLiteral {
		return fmt.Errorf("literal in subject position: %s", t.Subject)
	}
	if t.Predicate.Kind != KindIRI {
		return fmt.Errorf("predicate must be an IRI: %s", t.Predicate)
	}
	if t.Subject.Value == "" || t.Predicate.Value == "" {
		return fmt.Errorf("empty term in %s", t)
	}
	return nil
}

func escapeLiteral(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
