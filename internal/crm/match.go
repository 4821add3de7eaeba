package crm

import (
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// MatchSearch reports whether any of the JSON paths in fields of doc
// contains needle, case-insensitively. An empty needle matches.
func MatchSearch(doc string, fields []string, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(gjson.Get(doc, f).String()), needle) {
			return true
		}
	}
	return false
}

// MatchFilters reports whether doc has, for every filtered field, one of the
// allowed values.
func MatchFilters(doc string, filters map[string][]string) bool {
	for field, values := range filters {
		if !slices.Contains(values, gjson.Get(doc, field).String()) {
			return false
		}
	}
	return true
}

// CompareField orders two documents by the value at path: missing values
// first, numbers numerically, everything else by lower-cased string.
func CompareField(a, b, path string) int {
	x, y := gjson.Get(a, path), gjson.Get(b, path)
	switch {
	case !x.Exists() && !y.Exists():
		return 0
	case !x.Exists():
		return -1
	case !y.Exists():
		return 1
	case x.Type == gjson.Number && y.Type == gjson.Number:
		switch {
		case x.Num < y.Num:
			return -1
		case x.Num > y.Num:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(x.String()), strings.ToLower(y.String()))
}
