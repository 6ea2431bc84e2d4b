// Package listutil turns list endpoint query strings into paging, sorting and filter values.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Paging defaults and bounds.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Schema names the sort columns and exact-match filters one list accepts.
// Anything else in the query string is ignored.
type Schema struct {
	SortColumns []string
	FilterKeys  []string
}

// ListParams is a parsed list request.
type ListParams struct {
	Page    int // 1-indexed
	PerPage int
	Sort    string // empty selects the store default order
	Dir     string // Asc or Desc
	Search  string
	Filters map[string]string
}

// Parse reads q, page, per_page, sort, dir and the schema's filter keys.
// POST: Page >= 1; 1 <= PerPage <= MaxPerPage; Sort is empty or a schema column;
// Filters holds only schema keys with non-blank trimmed values
func (s Schema) Parse(q url.Values) ListParams {
	p := ListParams{
		Page:    positiveInt(q.Get("page"), 1),
		PerPage: min(positiveInt(q.Get("per_page"), DefaultPerPage), MaxPerPage),
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string, len(s.FilterKeys)),
		Dir:     Desc,
	}
	if sort := q.Get("sort"); slices.Contains(s.SortColumns, sort) {
		p.Sort = sort
	}
	if strings.EqualFold(q.Get("dir"), Asc) {
		p.Dir = Asc
	}
	for _, key := range s.FilterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			p.Filters[key] = v
		}
	}
	return p
}

// ID returns the filter value for key when it is a positive integer.
func (p ListParams) ID(key string) (int64, bool) {
	n, err := strconv.ParseInt(p.Filters[key], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// PageInfo describes one page of a list response.
type PageInfo struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// NewPageInfo clamps page into the available range.
// PRE: total >= 0
// POST: TotalPages >= 1; 1 <= Page <= TotalPages
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max((total+perPage-1)/perPage, 1)
	page = min(max(page, 1), pages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}

// Offset is the number of rows before this page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}
