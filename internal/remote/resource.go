package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

// deleteConcurrency bounds the number of DELETE requests DeleteMany keeps
// in flight.
const deleteConcurrency = 4

// Resource is a REST collection under /api/<name>.
type Resource[T types.Entity, F types.Filter] struct {
	client *Client
	path   string
}

var _ types.Service[types.Worker, types.WorkerFilters] = (*Resource[types.Worker, types.WorkerFilters])(nil)

// NewResource returns the collection mounted at /api/<name>.
func NewResource[T types.Entity, F types.Filter](c *Client, name string) *Resource[T, F] {
	return &Resource[T, F]{client: c, path: "/api/" + name}
}

func (r *Resource[T, F]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// GetAll lists one page of entities matching filters.
func (r *Resource[T, F]) GetAll(ctx context.Context, filters F, page types.PageRequest) (types.Page[T], error) {
	q := filters.Query()
	if q == nil {
		q = url.Values{}
	}
	if page.Page > 0 {
		q.Set("page", strconv.Itoa(page.Page))
	}
	if page.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(page.PageSize))
	}

	var out types.Page[T]
	if err := r.client.do(ctx, http.MethodGet, r.path, q, nil, &out); err != nil {
		return types.Page[T]{}, err
	}
	if out.Data == nil {
		out.Data = []T{}
	}
	return out, nil
}

// Get returns a single entity.
func (r *Resource[T, F]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	if id <= 0 {
		return out, types.ErrInvalidID
	}
	if err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Create posts a new entity without its ID and returns it with the
// server-assigned ID.
func (r *Resource[T, F]) Create(ctx context.Context, entity T) (T, error) {
	if e, ok := any(entity).(interface{ WithoutID() T }); ok {
		entity = e.WithoutID()
	}
	var out T
	if err := r.client.do(ctx, http.MethodPost, r.path, nil, entity, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Update replaces the entity with the same ID.
func (r *Resource[T, F]) Update(ctx context.Context, entity T) (T, error) {
	id := entity.EntityID()
	if id <= 0 {
		var zero T
		return zero, types.ErrInvalidID
	}
	var out T
	if err := r.client.do(ctx, http.MethodPut, r.itemPath(id), nil, entity, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Delete removes one entity.
func (r *Resource[T, F]) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
}

// DeleteMany removes every entity in ids with concurrent DELETE requests.
// The first failure cancels the requests not yet sent and is returned;
// requests already sent may have succeeded.
func (r *Resource[T, F]) DeleteMany(ctx context.Context, ids []int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.Delete(gctx, id); err != nil {
				return fmt.Errorf("delete %s %d: %w", r.path, id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.client.logger.Warn("batch delete failed", zap.String("path", r.path), zap.Int64s("ids", ids), zap.Error(err))
		return err
	}
	return nil
}
