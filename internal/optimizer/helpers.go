package optimizer

import "github.com/aleksaelezovic/oxifuj/internal/rdf"

func litValue(t rdf.Term) (string, bool) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

func boolTerm(b bool) rdf.Term { return rdf.NewBooleanLiteral(b) }
