package crm

import (
	"fmt"
	"sort"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

// ColumnType drives SQL casts on the server and value coercion in the CLI.
type ColumnType int

const (
	Text ColumnType = iota
	UUID
	Int
	Numeric
	Bool
	Date
	Timestamp
)

// Column describes one table column. ReadOnly columns are maintained by the
// server and never accepted from a payload.
type Column struct {
	Name     string
	Type     ColumnType
	ReadOnly bool
}

// Schema describes one entity table.
type Schema struct {
	Kind        string
	Table       string
	Columns     []Column
	Search      []string
	DefaultSort string
}

var baseColumns = []Column{
	{Name: "id", Type: UUID, ReadOnly: true},
	{Name: "created_at", Type: Timestamp, ReadOnly: true},
	{Name: "updated_at", Type: Timestamp, ReadOnly: true},
	{Name: "created_by", Type: UUID, ReadOnly: true},
	{Name: "updated_by", Type: UUID, ReadOnly: true},
	{Name: "deleted_at", Type: Timestamp, ReadOnly: true},
}

func withBase(cols ...Column) []Column {
	return append(append([]Column{}, baseColumns...), cols...)
}

var (
	OrganizationSchema = Schema{
		Kind:  "organization",
		Table: "organizations",
		Columns: withBase(
			Column{Name: "name"},
			Column{Name: "segment"},
			Column{Name: "priority"},
			Column{Name: "city"},
			Column{Name: "state"},
			Column{Name: "phone"},
			Column{Name: "email"},
			Column{Name: "website"},
			Column{Name: "notes"},
			Column{Name: "primary_manager_id", Type: UUID},
		),
		Search:      []string{"name", "city", "email", "phone", "website"},
		DefaultSort: "name",
	}

	ContactSchema = Schema{
		Kind:  "contact",
		Table: "contacts",
		Columns: withBase(
			Column{Name: "organization_id", Type: UUID},
			Column{Name: "first_name"},
			Column{Name: "last_name"},
			Column{Name: "email"},
			Column{Name: "phone"},
			Column{Name: "title"},
			Column{Name: "role"},
			Column{Name: "is_primary", Type: Bool},
			Column{Name: "notes"},
		),
		Search:      []string{"first_name", "last_name", "email", "phone", "title"},
		DefaultSort: "last_name",
	}

	ProductSchema = Schema{
		Kind:  "product",
		Table: "products",
		Columns: withBase(
			Column{Name: "principal_id", Type: UUID},
			Column{Name: "name"},
			Column{Name: "sku"},
			Column{Name: "category"},
			Column{Name: "unit_of_measure"},
			Column{Name: "list_price", Type: Numeric},
			Column{Name: "active", Type: Bool},
			Column{Name: "description"},
		),
		Search:      []string{"name", "sku", "category", "description"},
		DefaultSort: "name",
	}

	OpportunitySchema = Schema{
		Kind:  "opportunity",
		Table: "opportunities",
		Columns: withBase(
			Column{Name: "organization_id", Type: UUID},
			Column{Name: "contact_id", Type: UUID},
			Column{Name: "principal_id", Type: UUID},
			Column{Name: "product_id", Type: UUID},
			Column{Name: "name"},
			Column{Name: "stage"},
			Column{Name: "status"},
			Column{Name: "probability", Type: Int},
			Column{Name: "estimated_value", Type: Numeric},
			Column{Name: "expected_close_date", Type: Date},
			Column{Name: "notes"},
		),
		Search:      []string{"name", "notes"},
		DefaultSort: "expected_close_date",
	}

	InteractionSchema = Schema{
		Kind:  "interaction",
		Table: "interactions",
		Columns: withBase(
			Column{Name: "opportunity_id", Type: UUID},
			Column{Name: "organization_id", Type: UUID},
			Column{Name: "contact_id", Type: UUID},
			Column{Name: "type"},
			Column{Name: "subject"},
			Column{Name: "description"},
			Column{Name: "interaction_date", Type: Timestamp},
			Column{Name: "follow_up_required", Type: Bool},
			Column{Name: "follow_up_date", Type: Date},
			Column{Name: "follow_up_notes"},
			Column{Name: "outcome"},
			Column{Name: "attachment_key"},
		),
		Search:      []string{"subject", "description", "outcome", "follow_up_notes"},
		DefaultSort: "interaction_date",
	}
)

var schemas = map[string]Schema{}

func init() {
	for _, s := range []Schema{OrganizationSchema, ContactSchema, ProductSchema, OpportunitySchema, InteractionSchema} {
		schemas[s.Table] = s
	}
}

// SchemaFor returns the schema of table, or common.ErrUnknownEntity.
func SchemaFor(table string) (Schema, error) {
	s, ok := schemas[table]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", common.ErrUnknownEntity, table)
	}
	return s, nil
}

// Tables lists every known table name in sorted order.
func Tables() []string {
	out := make([]string, 0, len(schemas))
	for t := range schemas {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Writable reports whether name may appear in a create or update payload.
func (s Schema) Writable(name string) bool {
	c, ok := s.Column(name)
	return ok && !c.ReadOnly
}

// ColumnNames returns all column names in declaration order.
func (s Schema) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}
