package results

import (
	"encoding/json"
	"sort"

	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// SPARQL 1.1 Query Results JSON Format:
// https://www.w3.org/TR/sparql11-results-json/
//
// Grounded in the teacher's pkg/server/results/json.go, trimmed to the
// one serializer SPEC_FULL.md keeps (§6.4's "a minimal JSON writer" —
// XML/CSV/TSV are named out of scope).

type jsonDoc struct {
	Head    jsonHead         `json:"head"`
	Results *jsonResults     `json:"results,omitempty"`
	Boolean *bool            `json:"boolean,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars,omitempty"`
}

type jsonResults struct {
	Bindings []map[string]jsonValue `json:"bindings"`
}

type jsonValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// WriteSelectJSON drains s and marshals it to the SPARQL JSON results
// format. It materializes the whole sequence, matching the wire format's
// own all-at-once "results" array — there is no streaming JSON form here.
func WriteSelectJSON(tok cancel.Token, s *Solutions) ([]byte, error) {
	varNames := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		varNames[i] = string(v)
	}
	if len(varNames) == 0 {
		varNames = nil
	}

	var bindings []map[string]jsonValue
	varSeen := map[string]bool{}
	for {
		b, ok, err := s.Next(tok)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		row := make(map[string]jsonValue, len(b))
		for v, term := range b {
			row[string(v)] = termToJSON(term)
			varSeen[string(v)] = true
		}
		bindings = append(bindings, row)
	}

	if varNames == nil {
		// SELECT * : report every variable actually observed, sorted
		// for deterministic output (the teacher's json.go does the same).
		for v := range varSeen {
			varNames = append(varNames, v)
		}
		sort.Strings(varNames)
	}

	doc := jsonDoc{
		Head:    jsonHead{Vars: varNames},
		Results: &jsonResults{Bindings: bindings},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// WriteAskJSON marshals an ASK result.
func WriteAskJSON(result bool) ([]byte, error) {
	doc := jsonDoc{Head: jsonHead{}, Boolean: &result}
	return json.MarshalIndent(doc, "", "  ")
}

func termToJSON(t rdf.Term) jsonValue {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return jsonValue{Type: "uri", Value: v.IRI}
	case *rdf.BlankNode:
		return jsonValue{Type: "bnode", Value: v.ID}
	case *rdf.Literal:
		jv := jsonValue{Type: "literal", Value: v.Value}
		switch {
		case v.Language != "":
			jv.Lang = v.Language
		case v.Datatype != nil && !v.Datatype.Equals(rdf.XSDString):
			jv.Datatype = v.Datatype.IRI
		}
		return jv
	default:
		return jsonValue{Type: "literal", Value: t.String()}
	}
}
