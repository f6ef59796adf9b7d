package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// Params holds page-number pagination extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// New builds Params for page and limit, computing Offset.
func New(page, limit int) Params {
	return Params{
		Page:   page,
		Limit:  limit,
		Offset: Offset(page, limit),
	}
}

// Offset is (page-1)*limit, saturating at math.MaxInt instead of wrapping.
// Non-positive page or limit yields 0.
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return New(DefaultPage, DefaultLimit)
}

// FromRequest reads "page" and "limit" from the query string. Missing,
// malformed or non-positive values fall back to page 1 and defaultLimit;
// limit is capped at maxLimit.
func FromRequest(r *http.Request, defaultLimit, maxLimit int) Params {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	if maxLimit < 1 {
		maxLimit = MaxLimit
	}

	page := DefaultPage
	limit := defaultLimit

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return New(page, limit)
}

// TotalPages returns ceil(total / limit), or 0 when there is nothing to page.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
