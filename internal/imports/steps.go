package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/pricelists"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// DefaultBatchSize caps the rows or items handled by one step invocation.
const DefaultBatchSize = 25

// Step is one resumable stage. Run performs a single bounded invocation and reports
// the fraction complete; the pipeline stops calling a step once it reports 1.
type Step interface {
	Name() enums.ImportStep
	Args(job *JobContext) map[string]any
	Run(ctx context.Context, job *JobContext) (types.Progress, error)
}

type itemStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.PriceList, error)
	CountItems(ctx context.Context, listID uuid.UUID) (int64, error)
	PurgeBatch(ctx context.Context, listID uuid.UUID, limit int) (int, error)
	InTx(ctx context.Context, fn func(tx *pricelists.Repository) error) error
}

type purchasableFinder interface {
	FindByIdentifier(ctx context.Context, typ enums.PurchasableType, field enums.IdentifierField, value string) (*catalog.Purchasable, error)
}

func batchSize(job *JobContext) int {
	if job.BatchSize > 0 {
		return job.BatchSize
	}
	return DefaultBatchSize
}

func complete(message string) types.Progress {
	return types.Progress{Fraction: 1, Message: message}
}

func fraction(done, total int) float64 {
	if total <= 0 || done >= total {
		return 1
	}
	return float64(done) / float64(total)
}

// PurgeStep empties the price list before rows are imported.
type PurgeStep struct {
	items itemStore
}

func NewPurgeStep(items itemStore) *PurgeStep {
	return &PurgeStep{items: items}
}

func (s *PurgeStep) Name() enums.ImportStep { return enums.ImportStepPurge }

func (s *PurgeStep) Args(job *JobContext) map[string]any {
	return map[string]any{
		"price_list_id": job.PriceListID.String(),
		"batch_size":    batchSize(job),
	}
}

func (s *PurgeStep) Run(ctx context.Context, job *JobContext) (types.Progress, error) {
	if !job.Purge.Started {
		total, err := s.items.CountItems(ctx, job.PriceListID)
		if err != nil {
			return types.Progress{}, err
		}
		job.Purge = PurgeCursor{Started: true, Total: int(total)}
	}
	if job.Purge.Total == 0 {
		return complete("No existing items to delete."), nil
	}

	limit := min(job.Purge.Total-job.Purge.Deleted, batchSize(job))
	if limit <= 0 {
		return complete(fmt.Sprintf("Deleted %d existing items.", job.Purge.Deleted)), nil
	}
	removed, err := s.items.PurgeBatch(ctx, job.PriceListID, limit)
	if err != nil {
		return types.Progress{}, err
	}
	job.Purge.Deleted += removed
	if removed == 0 {
		return complete(fmt.Sprintf("Deleted %d existing items.", job.Purge.Deleted)), nil
	}
	return types.Progress{
		Fraction: fraction(job.Purge.Deleted, job.Purge.Total),
		Message:  fmt.Sprintf("Deleted %d of %d existing items.", min(job.Purge.Deleted, job.Purge.Total), job.Purge.Total),
	}, nil
}

// RowImportStep creates or updates one item per source row.
type RowImportStep struct {
	items   itemStore
	catalog purchasableFinder
	logg    *logger.Logger
}

func NewRowImportStep(items itemStore, catalog purchasableFinder, logg *logger.Logger) *RowImportStep {
	if logg == nil {
		logg = logger.Nop()
	}
	return &RowImportStep{items: items, catalog: catalog, logg: logg}
}

func (s *RowImportStep) Name() enums.ImportStep { return enums.ImportStepRows }

func (s *RowImportStep) Args(job *JobContext) map[string]any {
	return map[string]any{
		"price_list_id":    job.PriceListID.String(),
		"file":             job.Filename,
		"mapping":          job.Options.Mapping,
		"identifier_field": job.Options.IdentifierField,
		"strategy":         job.Options.Strategy,
		"batch_size":       batchSize(job),
	}
}

// parsedRow is a source row resolved against the catalog, ready to be written.
type parsedRow struct {
	identifier  string
	line        int
	purchasable types.PurchasableRef
	quantity    decimal.Decimal
	price       types.Price
	listPrice   *types.Price
}

func (p parsedRow) key() string {
	return p.purchasable.String()
}

func (s *RowImportStep) Run(ctx context.Context, job *JobContext) (types.Progress, error) {
	src, err := OpenSource(job.FilePath)
	if err != nil {
		return types.Progress{}, err
	}
	defer src.Close()

	if !job.Rows.Started {
		total, err := src.Count()
		if err != nil {
			return types.Progress{}, err
		}
		job.Rows = RowCursor{Started: true, Total: total}
		if err := src.Close(); err != nil {
			return types.Progress{}, err
		}
		if src, err = OpenSource(job.FilePath); err != nil {
			return types.Progress{}, err
		}
		defer src.Close()
	}
	if job.Rows.Processed >= job.Rows.Total {
		return complete(s.summary(job)), nil
	}

	list, err := s.items.Get(ctx, job.PriceListID)
	if err != nil {
		return types.Progress{}, err
	}
	if err := src.Seek(job.Rows.Processed); err != nil {
		return types.Progress{}, err
	}

	var (
		read    int
		pending []parsedRow
		skipped []SkippedRow
	)
	for read < batchSize(job) {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Progress{}, err
		}
		read++

		parsed, skip, err := s.parse(ctx, list.PurchasableType, job, row)
		if err != nil {
			return types.Progress{}, err
		}
		if skip != nil {
			skipped = append(skipped, *skip)
			continue
		}
		pending = append(pending, parsed)
	}

	created, updated, existing, err := s.write(ctx, job, pending)
	if err != nil {
		return types.Progress{}, err
	}

	skipped = append(skipped, existing...)
	slices.SortStableFunc(skipped, func(a, b SkippedRow) int { return a.Line - b.Line })
	job.Rows.Processed += read
	job.Results.Created += created
	job.Results.Updated += len(updated)
	job.Results.UpdatedIdentifiers = append(job.Results.UpdatedIdentifiers, updated...)
	job.Results.Skipped = append(job.Results.Skipped, skipped...)

	if read == 0 {
		job.Rows.Total = job.Rows.Processed
	}
	return types.Progress{
		Fraction: fraction(job.Rows.Processed, job.Rows.Total),
		Message:  s.summary(job),
	}, nil
}

func (s *RowImportStep) summary(job *JobContext) string {
	return fmt.Sprintf("Processed %d of %d rows.", min(job.Rows.Processed, job.Rows.Total), job.Rows.Total)
}

// parse resolves a row. Row level problems are returned as a skip, storage failures as an error.
func (s *RowImportStep) parse(ctx context.Context, typ enums.PurchasableType, job *JobContext, row Row) (parsedRow, *SkippedRow, error) {
	m := job.Options.Mapping
	identifier := row.Get(m.IdentifierColumn)
	skip := func(reason string) (parsedRow, *SkippedRow, error) {
		return parsedRow{}, &SkippedRow{Identifier: identifier, Line: row.Line, Reason: reason}, nil
	}

	purchasable, err := s.catalog.FindByIdentifier(ctx, typ, job.Options.IdentifierField, identifier)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return skip(SkipNotFound)
		}
		return parsedRow{}, nil, err
	}

	price, err := types.ParsePrice(row.Get(m.PriceColumn), job.Currency)
	if err != nil {
		s.logg.Debug(s.logg.WithField(ctx, "line", row.Line), "unparseable price")
		return skip(SkipInvalidPrice)
	}

	var listPrice *types.Price
	if raw := row.Get(m.ListPriceColumn); raw != "" {
		lp, err := types.ParsePrice(raw, job.Currency)
		if err != nil {
			return skip(SkipInvalidListPrice)
		}
		listPrice = &lp
	}

	quantity := decimal.NewFromInt(1)
	if raw := row.Get(m.QuantityColumn); raw != "" {
		q, err := decimal.NewFromString(raw)
		if err != nil || q.IsNegative() {
			return skip(SkipInvalidQuantity)
		}
		quantity = q
	}

	return parsedRow{
		identifier:  identifier,
		line:        row.Line,
		purchasable: purchasable.Ref,
		quantity:    quantity,
		price:       price,
		listPrice:   listPrice,
	}, nil, nil
}

// write applies the batch in one transaction and appends new items to the list once.
func (s *RowImportStep) write(ctx context.Context, job *JobContext, rows []parsedRow) (created int, updated []string, skipped []SkippedRow, err error) {
	if len(rows) == 0 {
		return 0, nil, nil, nil
	}
	overwriteListPrice := job.Options.Mapping.ListPriceColumn != ""

	err = s.items.InTx(ctx, func(tx *pricelists.Repository) error {
		created, updated, skipped = 0, nil, nil
		batch := map[string]*models.PriceListItem{}
		var newIDs []uuid.UUID

		for _, row := range rows {
			existing := batch[row.key()]
			if existing == nil {
				found, err := tx.FindItem(ctx, job.PriceListID, row.purchasable)
				if err != nil {
					return err
				}
				existing = found
			}

			if existing != nil {
				if job.Options.Strategy == enums.ImportStrategySkipExisting {
					skipped = append(skipped, SkippedRow{Identifier: row.identifier, Line: row.line, Reason: SkipExisting})
					continue
				}
				existing.Quantity = row.quantity
				existing.SetPrice(row.price)
				if overwriteListPrice {
					existing.SetListPrice(row.listPrice)
				}
				if err := tx.UpdateItemPricing(ctx, existing); err != nil {
					return err
				}
				batch[row.key()] = existing
				updated = append(updated, row.identifier)
				continue
			}

			item := &models.PriceListItem{
				PurchasableType: row.purchasable.Type,
				PurchasableID:   row.purchasable.ID,
				Quantity:        row.quantity,
				Published:       true,
			}
			item.SetPrice(row.price)
			item.SetListPrice(row.listPrice)
			if err := tx.CreateItem(ctx, item); err != nil {
				return err
			}
			batch[row.key()] = item
			newIDs = append(newIDs, item.ID)
			created++
		}
		return tx.AppendItems(ctx, job.PriceListID, newIDs)
	})
	if err != nil {
		return 0, nil, nil, err
	}
	return created, updated, skipped, nil
}

// CleanupStep removes the staged source file. Failures are logged and never abort the job.
type CleanupStep struct {
	remove func(string) error
	logg   *logger.Logger
}

func NewCleanupStep(logg *logger.Logger) *CleanupStep {
	if logg == nil {
		logg = logger.Nop()
	}
	return &CleanupStep{remove: os.Remove, logg: logg}
}

func (s *CleanupStep) Name() enums.ImportStep { return enums.ImportStepCleanup }

func (s *CleanupStep) Args(job *JobContext) map[string]any {
	return map[string]any{"file": job.Filename}
}

func (s *CleanupStep) Run(ctx context.Context, job *JobContext) (types.Progress, error) {
	if job.FilePath != "" {
		if err := s.remove(job.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logg.Warn(s.logg.WithField(ctx, "file", job.FilePath), fmt.Sprintf("could not delete staged import file: %v", err))
		}
	}
	return complete("Removed the uploaded file."), nil
}
