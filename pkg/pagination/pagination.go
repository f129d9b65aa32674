package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/curator/pkg/query"
)

// ErrInvalidPage reports a page or page_size query value that is not an integer.
var ErrInvalidPage = errors.New("invalid pagination parameter")

// PageRequest is a normalized list request: Page starts at 1 and PageSize
// lies within the configured bounds.
type PageRequest struct {
	Page     int
	PageSize int
	Search   *string
	Sort     []query.SortField
}

// PageRequestFromQuery reads page, page_size, search, and sort from values.
// Absent or out-of-range numbers are clamped against cfg; non-numeric ones
// are rejected with ErrInvalidPage.
func PageRequestFromQuery(values url.Values, cfg Config) (PageRequest, error) {
	page, err := intParam(values, "page")
	if err != nil {
		return PageRequest{}, err
	}
	size, err := intParam(values, "page_size")
	if err != nil {
		return PageRequest{}, err
	}

	req := PageRequest{
		Page:     max(page, 1),
		PageSize: size,
		Sort:     query.ParseSortFields(values.Get("sort")),
	}
	switch {
	case req.PageSize < 1:
		req.PageSize = cfg.DefaultPageSize
	case req.PageSize > cfg.MaxPageSize:
		req.PageSize = cfg.MaxPageSize
	}
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}
	return req, nil
}

func intParam(values url.Values, key string) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPage, key, raw)
	}
	return n, nil
}

// PageResult is the envelope returned by list endpoints.
type PageResult[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPageResult wraps one page of data. An empty result still reports one
// page, and Data is never null in JSON.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	pages := max((total+pageSize-1)/pageSize, 1)
	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}
