package ports

import (
	"context"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// ResourceService is the use-case surface shared by every CRUD family.
// Records the actor may not see are reported as domain.ErrNotFound.
type ResourceService[T any] interface {
	List(ctx context.Context, actor domain.Identity, filter ListFilter) (*Page[T], error)
	Get(ctx context.Context, actor domain.Identity, id int64) (*T, error)
	Create(ctx context.Context, actor domain.Identity, e *T) (*T, error)
	// Update loads the record, applies mutate and persists the result.
	Update(ctx context.Context, actor domain.Identity, id int64, mutate func(*T) error) (*T, error)
	Delete(ctx context.Context, actor domain.Identity, id int64) error
}
