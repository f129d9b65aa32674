package insights

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/pkg/pagination"
)

// System defines the public contract for insight domain operations.
type System interface {
	Transactor

	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Insight], error)

	Find(ctx context.Context, id uuid.UUID) (*Insight, error)
}
