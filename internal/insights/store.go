package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/pkg/query"
	"github.com/JaimeStill/curator/pkg/repository"
)

// Store is the transaction-scoped view of the insight table used by the
// annotation engine and the scheduler jobs. Selections lock their rows for
// the lifetime of the enclosing transaction.
type Store interface {
	Find(ctx context.Context, id uuid.UUID) (*Insight, error)
	Save(ctx context.Context, insight *Insight) error

	// ListApplicable returns undecided, non-latent insights whose
	// process_after is at or before now.
	ListApplicable(ctx context.Context, now time.Time) ([]Insight, error)

	// ListUnmarked returns undecided, non-latent insights that have not been
	// marked for automatic processing yet.
	ListUnmarked(ctx context.Context) ([]Insight, error)

	// ListPending returns undecided, non-latent insights of one type.
	ListPending(ctx context.Context, t Type) ([]Insight, error)
}

// Transactor runs fn against a Store bound to a single transaction.
// The transaction commits only if fn returns nil.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

type store struct {
	db repository.DBTX
}

// NewStore binds a Store to a connection or transaction.
func NewStore(db repository.DBTX) Store {
	return &store{db: db}
}

func (s *store) Find(ctx context.Context, id uuid.UUID) (*Insight, error) {
	q, args := query.NewBuilder(projection).ForUpdate(false).BuildSingle("ID", id)

	i, err := repository.QueryOne(ctx, s.db, q, args, scanInsight)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &i, nil
}

func (s *store) Save(ctx context.Context, insight *Insight) error {
	data, err := encodeData(insight.Data)
	if err != nil {
		return err
	}

	q := `
		UPDATE insights
		SET data = $2::jsonb,
			latent = $3,
			annotation = $4,
			username = $5,
			automatic_processing = $6,
			completed_at = $7,
			process_after = $8
		WHERE id = $1`

	err = repository.ExecExpectOne(
		ctx, s.db, q,
		insight.ID,
		data,
		insight.Latent,
		insight.Annotation,
		insight.Username,
		insight.AutomaticProcessing,
		insight.CompletedAt,
		insight.ProcessAfter,
	)
	if err != nil {
		return fmt.Errorf("save insight %s: %w", insight.ID, repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

func (s *store) ListApplicable(ctx context.Context, now time.Time) ([]Insight, error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereNull("Annotation").
		WhereEquals("Latent", false).
		WhereNotNull("ProcessAfter").
		WhereAtOrBefore("ProcessAfter", now).
		ForUpdate(true)

	return s.list(ctx, qb, "applicable")
}

func (s *store) ListUnmarked(ctx context.Context) ([]Insight, error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereNull("Annotation").
		WhereEquals("Latent", false).
		WhereNull("ProcessAfter").
		ForUpdate(true)

	return s.list(ctx, qb, "unmarked")
}

func (s *store) ListPending(ctx context.Context, t Type) ([]Insight, error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("Type", string(t)).
		WhereNull("Annotation").
		WhereEquals("Latent", false).
		ForUpdate(true)

	return s.list(ctx, qb, "pending")
}

func (s *store) list(ctx context.Context, qb *query.Builder, label string) ([]Insight, error) {
	q, args := qb.Build()
	items, err := repository.QueryMany(ctx, s.db, q, args, scanInsight)
	if err != nil {
		return nil, fmt.Errorf("query %s insights: %w", label, err)
	}
	return items, nil
}
