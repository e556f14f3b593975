package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/aitorress/delve-taxonomy/pkg/pagination"
	"github.com/aitorress/delve-taxonomy/workflow"
)

// System defines the public contract for run domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)
	Create(ctx context.Context, cmd CreateCommand) (*Run, error)
	Taxonomy(ctx context.Context, id uuid.UUID) ([]workflow.Category, error)
	Documents(ctx context.Context, id uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[RunDocument], error)
	Delete(ctx context.Context, id uuid.UUID) error
}
