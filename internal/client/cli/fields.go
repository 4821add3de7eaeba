package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// ParseAssignments turns "field=value" arguments into a patch, converting
// each value to its column's type. An empty value ("notes=") clears the
// field. Dates accept 2006-01-02; timestamps accept RFC 3339 or a date.
func ParseAssignments(schema crm.Schema, args []string) (crm.Patch, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no field=value pairs given: %w", common.ErrNothingToUpdate)
	}
	patch := make(crm.Patch, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q is not field=value: %w", arg, common.ErrValidation)
		}
		col, ok := schema.Column(name)
		if !ok || col.ReadOnly {
			return nil, fmt.Errorf("%w: %s: %s", common.ErrUnknownField, schema.Table, name)
		}
		v, err := convert(col, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		patch[name] = v
	}
	return patch, nil
}

func convert(col crm.Column, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	switch col.Type {
	case crm.Int:
		return strconv.Atoi(raw)
	case crm.Numeric:
		return strconv.ParseFloat(raw, 64)
	case crm.Bool:
		return strconv.ParseBool(raw)
	case crm.Date:
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("want YYYY-MM-DD: %w", common.ErrValidation)
		}
		return d, nil
	case crm.Timestamp:
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts, nil
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("want RFC 3339 or YYYY-MM-DD: %w", common.ErrValidation)
		}
		return d, nil
	default:
		return raw, nil
	}
}
