package cron

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

type ownerReconciler interface {
	ListsWithUnownedItems(ctx context.Context) ([]uuid.UUID, error)
	BackfillOwners(ctx context.Context, listID uuid.UUID) (int64, error)
}

// NewOwnerBackfillJob sets price_list_id on attached items that were left without one,
// for example when a process died between attaching and backfilling.
func NewOwnerBackfillJob(lists ownerReconciler, logg *logger.Logger) (Job, error) {
	if lists == nil {
		return nil, errors.New("price list repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &ownerBackfillJob{lists: lists, logg: logg}, nil
}

type ownerBackfillJob struct {
	lists ownerReconciler
	logg  *logger.Logger
}

func (j *ownerBackfillJob) Name() string { return "price-list-owner-backfill" }

func (j *ownerBackfillJob) Run(ctx context.Context) (int, error) {
	ids, err := j.lists.ListsWithUnownedItems(ctx)
	if err != nil {
		return 0, err
	}
	var fixed int64
	var errs error
	for _, id := range ids {
		if ctx.Err() != nil {
			return int(fixed), multierr.Append(errs, ctx.Err())
		}
		n, err := j.lists.BackfillOwners(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if n > 0 {
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{"price_list_id": id.String(), "items": n}), "backfilled orphaned price list items")
		}
		fixed += n
	}
	return int(fixed), errs
}
