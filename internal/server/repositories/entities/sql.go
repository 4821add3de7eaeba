package entities

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/dbx"
	"github.com/google/uuid"
)

// selectList renders every schema column. UUIDs come back as text and
// numerics as float8 so the driver hands out JSON-friendly Go values.
func selectList(s crm.Schema) string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		name := dbx.QuoteIdent(c.Name)
		switch c.Type {
		case crm.UUID:
			parts[i] = name + "::text AS " + name
		case crm.Numeric:
			parts[i] = name + "::float8 AS " + name
		default:
			parts[i] = name
		}
	}
	return strings.Join(parts, ", ")
}

// whereClause renders the search, filter and soft-delete conditions of q.
// Arguments are numbered from $1.
func whereClause(s crm.Schema, q crm.Query) (string, []any, error) {
	var conds []string
	var args []any

	if !q.IncludeDeleted {
		conds = append(conds, `"deleted_at" IS NULL`)
	}

	if q.Search != "" && len(s.Search) > 0 {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		ph := "$" + strconv.Itoa(len(args))
		ors := make([]string, len(s.Search))
		for i, f := range s.Search {
			ors[i] = dbx.QuoteIdent(f) + " ILIKE " + ph
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	fields := make([]string, 0, len(q.Filters))
	for f := range q.Filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if _, ok := s.Column(f); !ok {
			return "", nil, fmt.Errorf("%w: filter on %q", common.ErrUnknownField, f)
		}
		values := q.Filters[f]
		if len(values) == 0 {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s::text IN (%s)", dbx.QuoteIdent(f), dbx.Placeholders(len(args)+1, len(values))))
		for _, v := range values {
			args = append(args, v)
		}
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func orderClause(s crm.Schema, q crm.Query) (string, error) {
	by := q.Sort
	if by == "" {
		by = s.DefaultSort
	}
	if by == "" {
		return ` ORDER BY "id"`, nil
	}
	if _, ok := s.Column(by); !ok {
		return "", fmt.Errorf("%w: sort by %q", common.ErrUnknownField, by)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(` ORDER BY %s %s NULLS LAST, "id"`, dbx.QuoteIdent(by), dir), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// prepare checks that every key of p is a writable column and converts each
// JSON value to the Go type the column expects. Keys come back sorted.
func prepare(s crm.Schema, p crm.Patch) ([]string, []any, error) {
	if err := s.CheckPatch(p); err != nil {
		return nil, nil, err
	}
	cols := make([]string, 0, len(p))
	for k := range p {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, name := range cols {
		c, _ := s.Column(name)
		v, err := coerce(c, p[name])
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return cols, args, nil
}

func coerce(c crm.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func() error {
		return fmt.Errorf("%w: %s: unexpected value %v", common.ErrValidation, c.Name, v)
	}

	switch c.Type {
	case crm.Text:
		s, ok := v.(string)
		if !ok {
			return nil, bad()
		}
		return s, nil

	case crm.UUID:
		s, ok := v.(string)
		if !ok {
			return nil, bad()
		}
		if s == "" {
			return nil, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, bad()
		}
		return id.String(), nil

	case crm.Int:
		switch n := v.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, bad()
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case string:
			i, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, bad()
			}
			return i, nil
		}
		return nil, bad()

	case crm.Numeric:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, bad()
			}
			return f, nil
		}
		return nil, bad()

	case crm.Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, bad()
			}
			return parsed, nil
		}
		return nil, bad()

	case crm.Date, crm.Timestamp:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			if t == "" {
				return nil, nil
			}
			if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return ts, nil
			}
			if d, err := time.Parse(time.DateOnly, t); err == nil {
				return d, nil
			}
		}
		return nil, bad()
	}
	return nil, bad()
}

// nullable maps an empty user id to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
