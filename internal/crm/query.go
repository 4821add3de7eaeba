package crm

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

// Patch is a partial set of fields keyed by JSON/column name.
type Patch map[string]any

// Query carries the search, filter, sort and paging parameters of a list call.
type Query struct {
	Search         string
	Filters        map[string][]string
	Sort           string
	Desc           bool
	Page           int
	Limit          int
	IncludeDeleted bool
}

// Page is the findMany response envelope.
type Page[T any] struct {
	Data    []T  `json:"data"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// BulkUpdate is one element of an updateMany request.
type BulkUpdate struct {
	ID   string `json:"id"`
	Data Patch  `json:"data"`
}

// BulkDeleteRequest is the body of the bulk delete endpoint.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkUpdateRequest is the body of the bulk update endpoint.
type BulkUpdateRequest struct {
	Updates []BulkUpdate `json:"updates"`
}

// BulkError names one id that failed inside a bulk call.
type BulkError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult is the partial-failure response of deleteMany/updateMany.
type BulkResult struct {
	Success bool        `json:"success"`
	Errors  []BulkError `json:"errors"`
}

// Reserved query-string keys; every other key is a filter.
const (
	paramSearch         = "search"
	paramSort           = "sort"
	paramOrder          = "order"
	paramPage           = "page"
	paramLimit          = "limit"
	paramIncludeDeleted = "include_deleted"
)

// Normalize returns a copy with page >= 1, 1 <= limit <= common.MaxPageSize,
// trimmed search text, and filters with sorted, de-duplicated, non-empty values.
func (q Query) Normalize(defaultLimit int) Query {
	out := q
	out.Search = strings.TrimSpace(q.Search)
	if out.Page < 1 {
		out.Page = 1
	}
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if out.Limit <= 0 {
		out.Limit = common.DefaultPageSize
	}
	if out.Limit > common.MaxPageSize {
		out.Limit = common.MaxPageSize
	}

	out.Filters = nil
	for field, values := range q.Filters {
		seen := map[string]struct{}{}
		var vs []string
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			vs = append(vs, v)
		}
		if len(vs) == 0 {
			continue
		}
		sort.Strings(vs)
		if out.Filters == nil {
			out.Filters = map[string][]string{}
		}
		out.Filters[field] = vs
	}
	return out
}

// Offset is the number of rows skipped before the requested page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Values encodes q for the list endpoint. Each filter value is a separate
// parameter, so values may contain commas.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set(paramSearch, q.Search)
	}
	if q.Sort != "" {
		v.Set(paramSort, q.Sort)
		if q.Desc {
			v.Set(paramOrder, "desc")
		} else {
			v.Set(paramOrder, "asc")
		}
	}
	if q.Page > 0 {
		v.Set(paramPage, strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set(paramLimit, strconv.Itoa(q.Limit))
	}
	if q.IncludeDeleted {
		v.Set(paramIncludeDeleted, "true")
	}
	for field, values := range q.Filters {
		v[field] = slices.Clone(values)
	}
	return v
}

// ParseQuery decodes list parameters, rejecting filters and sort fields that
// are not columns of s.
func ParseQuery(s Schema, v url.Values) (Query, error) {
	var q Query
	var err error

	q.Search = v.Get(paramSearch)
	q.Sort = v.Get(paramSort)
	if q.Sort != "" {
		if _, ok := s.Column(q.Sort); !ok {
			return Query{}, fmt.Errorf("%w: sort by %q", common.ErrUnknownField, q.Sort)
		}
	}
	switch strings.ToLower(v.Get(paramOrder)) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return Query{}, fmt.Errorf("%w: order must be asc or desc", common.ErrValidation)
	}
	if p := v.Get(paramPage); p != "" {
		if q.Page, err = strconv.Atoi(p); err != nil {
			return Query{}, fmt.Errorf("%w: page: %v", common.ErrValidation, err)
		}
	}
	if l := v.Get(paramLimit); l != "" {
		if q.Limit, err = strconv.Atoi(l); err != nil {
			return Query{}, fmt.Errorf("%w: limit: %v", common.ErrValidation, err)
		}
	}
	if d := v.Get(paramIncludeDeleted); d != "" {
		if q.IncludeDeleted, err = strconv.ParseBool(d); err != nil {
			return Query{}, fmt.Errorf("%w: include_deleted: %v", common.ErrValidation, err)
		}
	}

	for key, values := range v {
		switch key {
		case paramSearch, paramSort, paramOrder, paramPage, paramLimit, paramIncludeDeleted:
			continue
		}
		if _, ok := s.Column(key); !ok {
			return Query{}, fmt.Errorf("%w: filter on %q", common.ErrUnknownField, key)
		}
		if q.Filters == nil {
			q.Filters = map[string][]string{}
		}
		q.Filters[key] = append(q.Filters[key], values...)
	}
	return q, nil
}
