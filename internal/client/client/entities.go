package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// EntityService is the REST implementation of the store's entity service for
// one table.
type EntityService[T any] struct {
	c      *HTTPClient
	schema crm.Schema
	path   string
}

func NewEntityService[T any](c *HTTPClient, schema crm.Schema) *EntityService[T] {
	return &EntityService[T]{c: c, schema: schema, path: common.APIPrefix + "/" + schema.Table}
}

func (s *EntityService[T]) FindMany(ctx context.Context, q crm.Query) (crm.Page[T], error) {
	var out crm.Page[T]
	err := s.c.do(ctx, http.MethodGet, s.path, q.Values(), nil, &out, true)
	return out, err
}

func (s *EntityService[T]) FindByID(ctx context.Context, id string) (T, error) {
	var out T
	err := s.c.do(ctx, http.MethodGet, s.itemPath(id), nil, nil, &out, true)
	return out, err
}

// Create sends the writable fields of payload; the server assigns id,
// timestamps and authorship.
func (s *EntityService[T]) Create(ctx context.Context, payload T) (T, error) {
	var out T
	body, err := crm.PatchOf(s.schema, payload)
	if err != nil {
		return out, err
	}
	err = s.c.do(ctx, http.MethodPost, s.path, nil, body, &out, true)
	return out, err
}

func (s *EntityService[T]) Update(ctx context.Context, id string, patch crm.Patch) (T, error) {
	var out T
	err := s.c.do(ctx, http.MethodPatch, s.itemPath(id), nil, patch, &out, true)
	return out, err
}

func (s *EntityService[T]) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, s.itemPath(id), nil, nil, nil, true)
}

func (s *EntityService[T]) DeleteMany(ctx context.Context, ids []string) (crm.BulkResult, error) {
	var out crm.BulkResult
	err := s.c.do(ctx, http.MethodPost, s.path+"/bulk/delete", nil, crm.BulkDeleteRequest{IDs: ids}, &out, true)
	return out, err
}

func (s *EntityService[T]) UpdateMany(ctx context.Context, updates []crm.BulkUpdate) (crm.BulkResult, error) {
	var out crm.BulkResult
	err := s.c.do(ctx, http.MethodPost, s.path+"/bulk/update", nil, crm.BulkUpdateRequest{Updates: updates}, &out, true)
	return out, err
}

func (s *EntityService[T]) itemPath(id string) string {
	return s.path + "/" + url.PathEscape(id)
}
