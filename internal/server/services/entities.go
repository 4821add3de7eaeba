package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/entities"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// EntityService serves every CRM table through the schema-driven
// repository. Tables are addressed by name and checked against crm schemas.
type EntityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maxPageSize int
	log         logging.Logger
}

func NewEntityService(db *sql.DB, m repomanager.RepositoryManager, maxPageSize int, log logging.Logger) *EntityService {
	if maxPageSize <= 0 || maxPageSize > common.MaxPageSize {
		maxPageSize = common.MaxPageSize
	}
	return &EntityService{db: db, repomanager: m, maxPageSize: maxPageSize, log: log.With("module", "entities")}
}

func (s *EntityService) repo(table string) (entities.Repository, crm.Schema, error) {
	schema, err := crm.SchemaFor(table)
	if err != nil {
		return nil, crm.Schema{}, err
	}
	return s.repomanager.Entities(s.db, schema), schema, nil
}

// List returns one page of table. The limit is capped at the configured
// maximum page size.
func (s *EntityService) List(ctx context.Context, table string, q crm.Query) (crm.Page[entities.Row], error) {
	repo, _, err := s.repo(table)
	if err != nil {
		return crm.Page[entities.Row]{}, err
	}
	q = q.Normalize(common.DefaultPageSize)
	if q.Limit > s.maxPageSize {
		q.Limit = s.maxPageSize
	}

	rows, total, err := repo.List(ctx, q)
	if err != nil {
		return crm.Page[entities.Row]{}, err
	}
	if rows == nil {
		rows = []entities.Row{}
	}
	return crm.Page[entities.Row]{
		Data:    rows,
		Page:    q.Page,
		Limit:   q.Limit,
		Count:   total,
		HasMore: q.Offset()+len(rows) < total,
	}, nil
}

func (s *EntityService) Get(ctx context.Context, table, id string) (entities.Row, error) {
	repo, schema, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	if err := checkID(schema, id); err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

func (s *EntityService) Create(ctx context.Context, userID, table string, fields crm.Patch) (entities.Row, error) {
	repo, _, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	return repo.Insert(ctx, userID, fields)
}

func (s *EntityService) Update(ctx context.Context, userID, table, id string, fields crm.Patch) (entities.Row, error) {
	repo, schema, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	if err := checkID(schema, id); err != nil {
		return nil, err
	}
	return repo.Update(ctx, userID, id, fields)
}

// Delete soft-deletes one row.
func (s *EntityService) Delete(ctx context.Context, userID, table, id string) error {
	repo, schema, err := s.repo(table)
	if err != nil {
		return err
	}
	if err := checkID(schema, id); err != nil {
		return err
	}
	return repo.SoftDelete(ctx, userID, id)
}

// DeleteMany deletes each id independently; failures are reported per id
// and never abort the rest.
func (s *EntityService) DeleteMany(ctx context.Context, userID, table string, ids []string) (crm.BulkResult, error) {
	repo, schema, err := s.repo(table)
	if err != nil {
		return crm.BulkResult{}, err
	}
	if len(ids) == 0 {
		return crm.BulkResult{}, fmt.Errorf("%w: ids must not be empty", common.ErrValidation)
	}

	res := crm.BulkResult{Errors: []crm.BulkError{}}
	for _, id := range ids {
		err := checkID(schema, id)
		if err == nil {
			err = repo.SoftDelete(ctx, userID, id)
		}
		if err != nil {
			res.Errors = append(res.Errors, crm.BulkError{ID: id, Error: err.Error()})
		}
	}
	res.Success = len(res.Errors) == 0
	s.logPartial(ctx, "bulk delete", table, len(ids), res)
	return res, nil
}

// UpdateMany applies each update independently.
func (s *EntityService) UpdateMany(ctx context.Context, userID, table string, updates []crm.BulkUpdate) (crm.BulkResult, error) {
	repo, schema, err := s.repo(table)
	if err != nil {
		return crm.BulkResult{}, err
	}
	if len(updates) == 0 {
		return crm.BulkResult{}, fmt.Errorf("%w: updates must not be empty", common.ErrValidation)
	}

	res := crm.BulkResult{Errors: []crm.BulkError{}}
	for _, u := range updates {
		err := checkID(schema, u.ID)
		if err == nil {
			_, err = repo.Update(ctx, userID, u.ID, u.Data)
		}
		if err != nil {
			res.Errors = append(res.Errors, crm.BulkError{ID: u.ID, Error: err.Error()})
		}
	}
	res.Success = len(res.Errors) == 0
	s.logPartial(ctx, "bulk update", table, len(updates), res)
	return res, nil
}

func (s *EntityService) logPartial(ctx context.Context, op, table string, total int, res crm.BulkResult) {
	if res.Success {
		return
	}
	s.log.Warn(ctx, op+" partially failed", "table", table, "total", total, "failed", len(res.Errors))
}

// checkID rejects ids that cannot exist, so malformed UUIDs read as missing
// rows instead of database errors.
func checkID(schema crm.Schema, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %s: %w", schema.Kind, id, common.ErrorNotFound)
	}
	return nil
}
