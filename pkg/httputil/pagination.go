package httputil

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is used when the limit parameter is absent or unparsable.
	DefaultLimit = 20
	// MaxLimit is the hard ceiling on page size.
	MaxLimit = 100

	// SortAsc and SortDesc are the only order values emitted by Normalize;
	// they are safe to interpolate into an ORDER BY clause.
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// ListParams is the validated, bounded form of raw list query parameters.
// SortField is guaranteed to be a member of the caller's whitelist and
// SortOrder one of SortAsc/SortDesc, so both can be spliced into SQL; the
// search term must always be parameter-bound.
type ListParams struct {
	Page      int
	Limit     int
	Offset    int
	SortField string
	SortOrder string
	Search    string
}

// HasSearch reports whether a search clause should be added at all.
func (p ListParams) HasSearch() bool {
	return p.Search != ""
}

// Normalize turns raw query parameters into bounded list parameters. It
// never fails: malformed input falls back to defaults.
//
//   - page: positive integer, anything else resolves to 1
//   - limit: positive integer clamped to MaxLimit, anything else DefaultLimit
//   - sort: must be whitelisted, anything else resolves to defaultSort
//   - order: exactly "asc" ascends, every other value descends
//   - search: trimmed; empty means no search clause
func Normalize(rawPage, rawLimit, rawSort, rawOrder, rawSearch, defaultSort string, allowedSortFields []string) ListParams {
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sortField := defaultSort
	for _, allowed := range allowedSortFields {
		if rawSort == allowed {
			sortField = rawSort
			break
		}
	}

	sortOrder := SortDesc
	if rawOrder == "asc" {
		sortOrder = SortAsc
	}

	return ListParams{
		Page:      page,
		Limit:     limit,
		Offset:    (page - 1) * limit,
		SortField: sortField,
		SortOrder: sortOrder,
		Search:    strings.TrimSpace(rawSearch),
	}
}

// NormalizeRequest applies Normalize to the standard list query parameters
// of an HTTP request.
func NormalizeRequest(r *http.Request, defaultSort string, allowedSortFields []string) ListParams {
	q := r.URL.Query()
	return Normalize(q.Get("page"), q.Get("limit"), q.Get("sort"), q.Get("order"), q.Get("search"), defaultSort, allowedSortFields)
}

// Meta is the pagination block of the collection envelope.
type Meta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewMeta computes response metadata for a page of a collection with the
// given total row count. When total is 0, pages is 0 and both flags are
// false; callers should skip the collection query entirely in that case.
func NewMeta(page, limit, total int) Meta {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return Meta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
