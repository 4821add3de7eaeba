package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/dbx"
)

// PostgresRepository implements Repository for one table over dbx.DBTX.
type PostgresRepository struct {
	db     dbx.DBTX
	schema crm.Schema
	cols   string
	table  string
}

func NewPostgresRepository(db dbx.DBTX, schema crm.Schema) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		schema: schema,
		cols:   selectList(schema),
		table:  dbx.QuoteIdent(schema.Table),
	}
}

func (r *PostgresRepository) List(ctx context.Context, q crm.Query) ([]Row, int, error) {
	q = q.Normalize(common.DefaultPageSize)

	where, args, err := whereClause(r.schema, q)
	if err != nil {
		return nil, 0, err
	}
	order, err := orderClause(r.schema, q)
	if err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := "SELECT " + r.cols + ", COUNT(*) OVER() AS total_count FROM " + r.table + where + order +
		" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Row
	total := 0
	for rows.Next() {
		row, count, err := scanRow(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, row)
		total = count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	// A page past the end carries no window count.
	if len(out) == 0 && q.Offset() > 0 {
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table+where, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
	}
	return out, total, nil
}

// Get returns the row with id, soft-deleted or not.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Row, error) {
	query := "SELECT " + r.cols + " FROM " + r.table + ` WHERE "id" = $1`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return r.one(rows)
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, fields crm.Patch) (Row, error) {
	cols, args, err := prepare(r.schema, fields)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		cols = append(cols, "created_by", "updated_by")
		args = append(args, userID, userID)
	}

	var query string
	if len(cols) == 0 {
		query = "INSERT INTO " + r.table + " DEFAULT VALUES RETURNING " + r.cols
	} else {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = dbx.QuoteIdent(c)
		}
		query = "INSERT INTO " + r.table + " (" + strings.Join(quoted, ", ") + ") VALUES (" +
			dbx.Placeholders(1, len(args)) + ") RETURNING " + r.cols
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return r.one(rows)
}

func (r *PostgresRepository) Update(ctx context.Context, userID, id string, fields crm.Patch) (Row, error) {
	if len(fields) == 0 {
		return nil, common.ErrNothingToUpdate
	}
	cols, args, err := prepare(r.schema, fields)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(cols)+2)
	for i, c := range cols {
		sets = append(sets, dbx.QuoteIdent(c)+" = $"+strconv.Itoa(i+1))
	}
	args = append(args, nullable(userID), id)
	sets = append(sets, `"updated_at" = now()`, `"updated_by" = $`+strconv.Itoa(len(args)-1))

	query := "UPDATE " + r.table + " SET " + strings.Join(sets, ", ") +
		` WHERE "id" = $` + strconv.Itoa(len(args)) + ` AND "deleted_at" IS NULL RETURNING ` + r.cols

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return r.one(rows)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID, id string) error {
	query := "UPDATE " + r.table + ` SET "deleted_at" = now(), "updated_at" = now(), "updated_by" = $1` +
		` WHERE "id" = $2 AND "deleted_at" IS NULL`

	res, err := r.db.ExecContext(ctx, query, nullable(userID), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// one reads exactly one row and closes rows.
func (r *PostgresRepository) one(rows *sql.Rows) (Row, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return nil, common.ErrorNotFound
	}
	row, _, err := scanRow(rows, false)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row, rows.Err()
}

// scanRow reads the current row by column name. With counted, the last
// column is the window count.
func scanRow(rows *sql.Rows, counted bool) (Row, int, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, 0, err
	}
	vals := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, 0, err
	}

	fields := len(names)
	total := 0
	if counted {
		fields--
		switch n := vals[fields].(type) {
		case int64:
			total = int(n)
		case int32:
			total = int(n)
		case int:
			total = n
		default:
			return nil, 0, errors.New("unexpected count type")
		}
	}

	row := make(Row, fields)
	for i := 0; i < fields; i++ {
		switch v := vals[i].(type) {
		case nil:
		case []byte:
			row[names[i]] = string(v)
		default:
			row[names[i]] = v
		}
	}
	return row, total, nil
}
