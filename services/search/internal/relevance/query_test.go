package relevance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestBuild_ClauseShape(t *testing.T) {
	req := Build("running shoes", nil, ptr(2000), 0, 12)

	require.Len(t, req.Should, 4)
	assert.Equal(t, 1, req.MinimumShouldMatch)
	require.NotNil(t, req.MinScore)
	assert.Equal(t, MinScore, *req.MinScore)
	assert.Equal(t, 0, req.From)
	assert.Equal(t, 12, req.Size)

	phrase, ok := req.Should[0].(Phrase)
	require.True(t, ok)
	assert.Equal(t, FieldName, phrase.Field)
	assert.Equal(t, "running shoes", phrase.Text)
	assert.Equal(t, 10.0, phrase.Boost)

	name, ok := req.Should[1].(AllWords)
	require.True(t, ok)
	assert.Equal(t, "name^4", name.Fields[0].String())
	assert.Equal(t, 5.0, name.Boost)

	category, ok := req.Should[2].(AllWords)
	require.True(t, ok)
	assert.Equal(t, "category_name^3", category.Fields[0].String())
	assert.Equal(t, 3.0, category.Boost)

	fuzzy, ok := req.Should[3].(Fuzzy)
	require.True(t, ok)
	assert.Equal(t, []string{"name^2", "category_name^1"}, fieldNames(fuzzy.Fields))
	assert.Equal(t, 1, fuzzy.Fuzziness)
	assert.Equal(t, 1.0, fuzzy.Boost)
}

func TestBuild_WeightsStrictlyDecrease(t *testing.T) {
	req := Build("jeans", nil, nil, 0, 12)

	var boosts []float64
	for _, c := range req.Should {
		switch c := c.(type) {
		case Phrase:
			boosts = append(boosts, c.Boost)
		case AllWords:
			boosts = append(boosts, c.Boost)
		case Fuzzy:
			boosts = append(boosts, c.Boost)
		}
	}
	require.Len(t, boosts, 4)
	for i := 1; i < len(boosts); i++ {
		assert.Greater(t, boosts[i-1], boosts[i])
	}
}

func TestBuild_PriceRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
		want     bool
	}{
		{"none", nil, nil, false},
		{"floor only", ptr(500), nil, true},
		{"ceiling only", nil, ptr(2000), true},
		{"both", ptr(500), ptr(2000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Build("jeans", tt.min, tt.max, 0, 12)
			rc, ok := req.PriceRange()
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Len(t, req.Filter, 1)
				assert.Equal(t, tt.min, rc.GTE)
				assert.Equal(t, tt.max, rc.LTE)
			} else {
				assert.Empty(t, req.Filter)
			}
		})
	}
}

func TestBuild_Pagination(t *testing.T) {
	req := Build("jeans", nil, nil, 12, 12)
	assert.Equal(t, 12, req.From)
	assert.Equal(t, 12, req.Size)
}

func TestBuild_EmptyKeywordIsFilterOnly(t *testing.T) {
	req := Build("", nil, ptr(2000), 0, 12)

	assert.Empty(t, req.Should)
	assert.Nil(t, req.MinScore)
	assert.Equal(t, "", req.Keyword())
	_, ok := req.PriceRange()
	assert.True(t, ok)
}

func TestRequest_MarshalJSON(t *testing.T) {
	req := Build("running shoes", nil, ptr(2000), 0, 12)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"query": {
			"bool": {
				"should": [
					{"match_phrase": {"name": {"query": "running shoes", "boost": 10}}},
					{"bool": {
						"must": {"multi_match": {"query": "running shoes", "fields": ["name^4"], "type": "cross_fields", "operator": "and"}},
						"boost": 5
					}},
					{"bool": {
						"must": {"multi_match": {"query": "running shoes", "fields": ["category_name^3"], "type": "cross_fields", "operator": "and"}},
						"boost": 3
					}},
					{"multi_match": {
						"query": "running shoes",
						"fields": ["name^2", "category_name^1"],
						"type": "best_fields",
						"operator": "and",
						"fuzziness": 1,
						"boost": 1
					}}
				],
				"minimum_should_match": 1,
				"filter": [{"range": {"discount_price": {"lte": 2000}}}]
			}
		},
		"from": 0,
		"size": 12,
		"min_score": 0.5,
		"track_total_hits": true
	}`, string(data))
}

func TestRequest_MarshalJSON_FilterOnly(t *testing.T) {
	data, err := json.Marshal(Build("", ptr(100), ptr(400), 24, 12))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"query": {
			"bool": {
				"must": {"match_all": {}},
				"filter": [{"range": {"discount_price": {"gte": 100, "lte": 400}}}]
			}
		},
		"from": 24,
		"size": 12,
		"track_total_hits": true
	}`, string(data))
}

func TestRequest_Keyword(t *testing.T) {
	assert.Equal(t, "jeans", Build("jeans", nil, nil, 0, 1).Keyword())
}
