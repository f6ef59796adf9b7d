package relevance

import (
	"encoding/json"
	"strconv"
)

// Field is a searchable field with a per-field boost.
type Field struct {
	Name  string
	Boost float64
}

// String renders the field in query-DSL form, e.g. "name^4".
func (f Field) String() string {
	if f.Boost == 0 {
		return f.Name
	}
	return f.Name + "^" + strconv.FormatFloat(f.Boost, 'f', -1, 64)
}

func fieldNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.String()
	}
	return out
}

// Clause is one node of a relevance query. The concrete kinds are Phrase,
// AllWords, Fuzzy and Range; engines switch on them.
type Clause interface {
	json.Marshaler
	isClause()
}

// Phrase matches the exact token sequence in one field.
type Phrase struct {
	Field string
	Text  string
	Boost float64
}

func (Phrase) isClause() {}

func (c Phrase) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"match_phrase": map[string]any{
			c.Field: map[string]any{
				"query": c.Text,
				"boost": c.Boost,
			},
		},
	})
}

// AllWords requires every token to appear across Fields, scored as if the
// fields were one (cross_fields).
type AllWords struct {
	Fields []Field
	Text   string
	Boost  float64
}

func (AllWords) isClause() {}

func (c AllWords) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"bool": map[string]any{
			"must": map[string]any{
				"multi_match": map[string]any{
					"query":    c.Text,
					"fields":   fieldNames(c.Fields),
					"type":     "cross_fields",
					"operator": "and",
				},
			},
			"boost": c.Boost,
		},
	})
}

// Fuzzy requires every token to match within Fuzziness edits in the best
// single field.
type Fuzzy struct {
	Fields    []Field
	Text      string
	Fuzziness int
	Boost     float64
}

func (Fuzzy) isClause() {}

func (c Fuzzy) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"multi_match": map[string]any{
			"query":     c.Text,
			"fields":    fieldNames(c.Fields),
			"type":      "best_fields",
			"operator":  "and",
			"fuzziness": c.Fuzziness,
			"boost":     c.Boost,
		},
	})
}

// Range restricts a numeric field. A nil bound is open. Range is used as a
// filter and does not contribute to the score.
type Range struct {
	Field string
	GTE   *float64
	LTE   *float64
}

func (Range) isClause() {}

func (c Range) MarshalJSON() ([]byte, error) {
	bounds := make(map[string]float64, 2)
	if c.GTE != nil {
		bounds["gte"] = *c.GTE
	}
	if c.LTE != nil {
		bounds["lte"] = *c.LTE
	}
	return json.Marshal(map[string]any{
		"range": map[string]any{c.Field: bounds},
	})
}
