// Package relevance builds the weighted boolean query used to rank catalog
// products.
package relevance

import (
	"encoding/json"
)

// Indexed field names.
const (
	FieldName          = "name"
	FieldCategoryName  = "category_name"
	FieldDiscountPrice = "discount_price"
)

// Clause weights, strictly decreasing.
const (
	WeightPhrase       = 10.0
	WeightNameAllWords = 5.0
	WeightCategoryAll  = 3.0
	WeightFuzzy        = 1.0
)

// MinScore is the relevance floor below which hits are dropped.
const MinScore = 0.5

// Fuzziness is the edit distance allowed by the fallback clause.
const Fuzziness = 1

// Request is a complete search request body: a bool query plus paging.
type Request struct {
	Should             []Clause
	Filter             []Clause
	MinimumShouldMatch int
	// MinScore is nil when no relevance floor applies.
	MinScore *float64
	From     int
	Size     int
}

// Keyword returns the text the should clauses search for, or "" for a
// filter-only request.
func (r *Request) Keyword() string {
	for _, c := range r.Should {
		switch c := c.(type) {
		case Phrase:
			return c.Text
		case AllWords:
			return c.Text
		case Fuzzy:
			return c.Text
		}
	}
	return ""
}

// PriceRange returns the discount_price filter, if any.
func (r *Request) PriceRange() (Range, bool) {
	for _, c := range r.Filter {
		if rc, ok := c.(Range); ok && rc.Field == FieldDiscountPrice {
			return rc, true
		}
	}
	return Range{}, false
}

// Build assembles the four-clause relevance query for keyword with an
// optional discount_price range. An empty keyword yields a filter-only
// request that matches every document in the price range.
func Build(keyword string, minPrice, maxPrice *float64, offset, limit int) *Request {
	req := &Request{
		From: offset,
		Size: limit,
	}

	if keyword != "" {
		floor := MinScore
		req.MinScore = &floor
		req.MinimumShouldMatch = 1
		req.Should = []Clause{
			Phrase{Field: FieldName, Text: keyword, Boost: WeightPhrase},
			AllWords{
				Fields: []Field{{Name: FieldName, Boost: 4}},
				Text:   keyword,
				Boost:  WeightNameAllWords,
			},
			AllWords{
				Fields: []Field{{Name: FieldCategoryName, Boost: 3}},
				Text:   keyword,
				Boost:  WeightCategoryAll,
			},
			Fuzzy{
				Fields:    []Field{{Name: FieldName, Boost: 2}, {Name: FieldCategoryName, Boost: 1}},
				Text:      keyword,
				Fuzziness: Fuzziness,
				Boost:     WeightFuzzy,
			},
		}
	}

	if minPrice != nil || maxPrice != nil {
		req.Filter = append(req.Filter, Range{Field: FieldDiscountPrice, GTE: minPrice, LTE: maxPrice})
	}

	return req
}

// MarshalJSON renders the request as an Elasticsearch/OpenSearch search body.
func (r *Request) MarshalJSON() ([]byte, error) {
	boolQuery := map[string]any{}
	if len(r.Should) > 0 {
		boolQuery["should"] = r.Should
		boolQuery["minimum_should_match"] = r.MinimumShouldMatch
	} else {
		boolQuery["must"] = map[string]any{"match_all": map[string]any{}}
	}
	if len(r.Filter) > 0 {
		boolQuery["filter"] = r.Filter
	}

	body := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             r.From,
		"size":             r.Size,
		"track_total_hits": true,
	}
	if r.MinScore != nil {
		body["min_score"] = *r.MinScore
	}
	return json.Marshal(body)
}
