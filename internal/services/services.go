package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/case-conductor/backend/internal/db"
	"github.com/case-conductor/backend/internal/events"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// ListOptions selects the view and page of a listing. PageIndex is 1-based;
// a zero PageSize returns everything.
type ListOptions struct {
	IncludeDeleted bool
	PageSize       int
	PageIndex      int
}

// Page is one page of a listing plus the total number of matches.
type Page[P any] struct {
	Total int
	Items []P
}

func view[T any, P repositories.Entity[T]](t *repositories.Table[T, P], includeDeleted bool) *repositories.Query[T, P] {
	if includeDeleted {
		return t.Everything()
	}
	return t.NotDeleted()
}

func paginate[T any, P repositories.Entity[T]](ctx context.Context, q *repositories.Query[T, P], opts ListOptions) (*Page[P], error) {
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	if opts.PageSize > 0 {
		idx := opts.PageIndex
		if idx < 1 {
			idx = 1
		}
		// pages past the addressable range are empty
		if idx-1 > (math.MaxInt-opts.PageSize)/opts.PageSize {
			return &Page[P]{Total: total, Items: []P{}}, nil
		}
		q = q.Limit(opts.PageSize).Offset((idx - 1) * opts.PageSize)
	}
	items, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []P{}
	}
	return &Page[P]{Total: total, Items: items}, nil
}

// notFound maps a missing row to ErrNotFound, naming what was looked up.
func notFound(err error, what string) error {
	if errors.Is(err, db.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// notifier publishes test execution events. Publishing is best effort.
type notifier struct {
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func (n notifier) publish(ctx context.Context, typ string, payload map[string]any) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, events.StreamTestExecution, events.Event{Type: typ, Payload: payload}); err != nil {
		n.log.Warn("failed to publish event", zap.String("type", typ), zap.Error(err))
	}
}

func (n notifier) transition(action string) {
	if n.metrics != nil {
		n.metrics.ResultTransitions.WithLabelValues(action).Inc()
	}
}
