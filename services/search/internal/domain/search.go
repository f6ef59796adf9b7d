package domain

import "github.com/Anitha-22/myecommerce/pkg/pagination"

// SearchRequest is one inbound search call.
type SearchRequest struct {
	RawQuery string `json:"q" validate:"required,notblank"`
	Page     int    `json:"page" validate:"gte=1"`
	Limit    int    `json:"limit" validate:"gte=1"`
}

// Offset is the number of hits to skip for the requested page. It saturates
// at math.MaxInt for pages too large to address.
func (r SearchRequest) Offset() int {
	return pagination.Offset(r.Page, r.Limit)
}

// ParsedQuery is the raw query split into keyword text and price bounds.
// A nil bound is absent. No ordering between the bounds is enforced.
type ParsedQuery struct {
	KeywordText string
	MinPrice    *float64
	MaxPrice    *float64
}

// HasPriceFilter reports whether either bound is present.
func (q ParsedQuery) HasPriceFilter() bool {
	return q.MinPrice != nil || q.MaxPrice != nil
}

// SearchResult is a projected page of hits.
type SearchResult struct {
	Items        []ProductHit
	TotalMatches int64
	Page         int
	Limit        int
	TotalPages   int
}

// PriceFilters echoes the extracted price bounds; absent bounds render as null.
type PriceFilters struct {
	MinPrice *float64 `json:"minPrice"`
	MaxPrice *float64 `json:"maxPrice"`
}

// SearchResponse is the JSON body returned by the search endpoint.
type SearchResponse struct {
	Query        string       `json:"query"`
	Products     []ProductHit `json:"products"`
	Total        int64        `json:"total"`
	CurrentPage  int          `json:"currentPage"`
	TotalPages   int          `json:"totalPages"`
	SearchTerm   string       `json:"searchTerm"`
	PriceFilters PriceFilters `json:"priceFilters"`
}

// NewSearchResponse renders a projected result for the raw query it answers.
func NewSearchResponse(rawQuery string, parsed ParsedQuery, result SearchResult) *SearchResponse {
	products := result.Items
	if products == nil {
		products = []ProductHit{}
	}
	return &SearchResponse{
		Query:       rawQuery,
		Products:    products,
		Total:       result.TotalMatches,
		CurrentPage: result.Page,
		TotalPages:  result.TotalPages,
		SearchTerm:  rawQuery,
		PriceFilters: PriceFilters{
			MinPrice: parsed.MinPrice,
			MaxPrice: parsed.MaxPrice,
		},
	}
}
