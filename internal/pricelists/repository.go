package pricelists

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pricelist-backend/internal/repo"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/pagination"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// Repository persists price lists and their ordered item collections.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

// InTx runs fn with a transaction-bound repository.
func (r *Repository) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// Get loads a price list by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.PriceList, error) {
	var list models.PriceList
	if err := r.DB(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		return nil, repo.MapError(err, "price list not found", "load price list")
	}
	return &list, nil
}

// Page is one slice of a store's lists in priority order.
type Page struct {
	Lists      []models.PriceList
	NextCursor string
}

// PageByStore returns up to params.Limit lists following params.Cursor.
func (r *Repository) PageByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*Page, error) {
	window, err := params.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	q := r.DB(ctx).Where("store_id = ?", storeID)
	if after := window.After; after != nil {
		q = q.Where("(weight > ?) OR (weight = ? AND id > ?)", after.Weight, after.Weight, after.ID)
	}
	var lists []models.PriceList
	if err := q.Order("weight ASC").Order("id ASC").Limit(window.Fetch()).Find(&lists).Error; err != nil {
		return nil, repo.MapError(err, "price list not found", "list price lists")
	}

	page := &Page{}
	page.Lists, page.NextCursor = pagination.Close(window, lists, func(l models.PriceList) pagination.Cursor {
		return pagination.Cursor{Weight: l.Weight, ID: l.ID}
	})
	return page, nil
}

// CreateList inserts the list row only.
func (r *Repository) CreateList(ctx context.Context, list *models.PriceList) error {
	if err := r.DB(ctx).Create(list).Error; err != nil {
		return repo.MapWriteError(err, "price list already exists", "create price list")
	}
	return nil
}

// CreateItem inserts an item without touching the owning list's collection.
func (r *Repository) CreateItem(ctx context.Context, item *models.PriceListItem) error {
	if err := r.DB(ctx).Create(item).Error; err != nil {
		return repo.MapWriteError(err, "price list item already exists", "create price list item")
	}
	return nil
}

// UpdateItemPricing overwrites the price, list price and quantity of an existing item.
func (r *Repository) UpdateItemPricing(ctx context.Context, item *models.PriceListItem) error {
	if err := r.DB(ctx).
		Model(&models.PriceListItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":                 item.Quantity,
			"price_amount":             item.PriceAmount,
			"price_currency_code":      item.PriceCurrency,
			"list_price_amount":        item.ListPriceAmount,
			"list_price_currency_code": item.ListPriceCurrency,
		}).Error; err != nil {
		return repo.MapWriteError(err, "price list item conflicts with an existing item", "update price list item")
	}
	return nil
}

// AppendItems adds item ids to the end of the list's collection and backfills
// the owner pointer of any item that does not carry one yet.
func (r *Repository) AppendItems(ctx context.Context, listID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	var last int
	if err := r.DB(ctx).
		Model(&models.PriceListItemRef{}).
		Where("price_list_id = ?", listID).
		Select("COALESCE(MAX(position), -1)").
		Row().Scan(&last); err != nil {
		return repo.MapError(err, "price list not found", "read item positions")
	}
	next := last + 1

	refs := make([]models.PriceListItemRef, 0, len(itemIDs))
	for i, id := range itemIDs {
		refs = append(refs, models.PriceListItemRef{PriceListID: listID, ItemID: id, Position: next + i})
	}
	if err := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&refs).Error; err != nil {
		return repo.MapError(err, "price list not found", "append price list items")
	}

	_, err := r.BackfillOwners(ctx, listID)
	return err
}

// BackfillOwners sets price_list_id on items referenced by the list that still lack it.
func (r *Repository) BackfillOwners(ctx context.Context, listID uuid.UUID) (int64, error) {
	refs := r.DB(ctx).
		Model(&models.PriceListItemRef{}).
		Select("item_id").
		Where("price_list_id = ?", listID)
	res := r.DB(ctx).
		Model(&models.PriceListItem{}).
		Where("price_list_id IS NULL").
		Where("id IN (?)", refs).
		Update("price_list_id", listID)
	if res.Error != nil {
		return 0, repo.MapError(res.Error, "price list not found", "backfill price list items")
	}
	return res.RowsAffected, nil
}

// ListsWithUnownedItems returns the lists whose collection references an item with no owner.
func (r *Repository) ListsWithUnownedItems(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.PriceListItemRef{}).
		Distinct("price_list_item_refs.price_list_id").
		Joins("JOIN price_list_items ON price_list_items.id = price_list_item_refs.item_id").
		Where("price_list_items.price_list_id IS NULL").
		Order("price_list_item_refs.price_list_id").
		Pluck("price_list_item_refs.price_list_id", &ids).Error
	if err != nil {
		return nil, repo.MapError(err, "price list not found", "find unowned price list items")
	}
	return ids, nil
}

// ItemIDs returns the list's item ids in collection order.
func (r *Repository) ItemIDs(ctx context.Context, listID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.DB(ctx).
		Model(&models.PriceListItemRef{}).
		Where("price_list_id = ?", listID).
		Order("position ASC").
		Pluck("item_id", &ids).Error; err != nil {
		return nil, repo.MapError(err, "price list not found", "list price list item ids")
	}
	return ids, nil
}

// Items returns the list's live items in collection order.
func (r *Repository) Items(ctx context.Context, listID uuid.UUID) ([]models.PriceListItem, error) {
	var items []models.PriceListItem
	if err := r.DB(ctx).
		Model(&models.PriceListItem{}).
		Select("price_list_items.*").
		Joins("JOIN price_list_item_refs ON price_list_item_refs.item_id = price_list_items.id").
		Where("price_list_item_refs.price_list_id = ?", listID).
		Order("price_list_item_refs.position ASC").
		Find(&items).Error; err != nil {
		return nil, repo.MapError(err, "price list not found", "list price list items")
	}
	return items, nil
}

// CountItems counts the entries in the list's collection.
func (r *Repository) CountItems(ctx context.Context, listID uuid.UUID) (int64, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.PriceListItemRef{}).
		Where("price_list_id = ?", listID).
		Count(&count).Error; err != nil {
		return 0, repo.MapError(err, "price list not found", "count price list items")
	}
	return count, nil
}

// FindItem returns the list's first item for the purchasable by position, or nil.
func (r *Repository) FindItem(ctx context.Context, listID uuid.UUID, ref types.PurchasableRef) (*models.PriceListItem, error) {
	var item models.PriceListItem
	err := r.DB(ctx).
		Model(&models.PriceListItem{}).
		Select("price_list_items.*").
		Joins("JOIN price_list_item_refs ON price_list_item_refs.item_id = price_list_items.id").
		Where("price_list_item_refs.price_list_id = ?", listID).
		Where("price_list_items.purchasable_type = ?", ref.Type).
		Where("price_list_items.purchasable_id = ?", ref.ID).
		Order("price_list_item_refs.position ASC").
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, repo.MapError(err, "price list item not found", "find price list item")
	}
	return &item, nil
}

// PurgeBatch deletes up to limit items from the head of the collection and drops
// references whose item no longer exists. It returns how many references were removed.
func (r *Repository) PurgeBatch(ctx context.Context, listID uuid.UUID, limit int) (int, error) {
	if limit <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "purge batch size must be positive")
	}
	removed := 0
	err := r.InTx(ctx, func(tx *Repository) error {
		var ids []uuid.UUID
		if err := tx.DB(ctx).
			Model(&models.PriceListItemRef{}).
			Where("price_list_id = ?", listID).
			Order("position ASC").
			Limit(limit).
			Pluck("item_id", &ids).Error; err != nil {
			return repo.MapError(err, "price list not found", "select items to purge")
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.DB(ctx).Where("id IN ?", ids).Delete(&models.PriceListItem{}).Error; err != nil {
			return repo.MapError(err, "price list item not found", "delete price list items")
		}
		res := tx.DB(ctx).
			Where("price_list_id = ?", listID).
			Where("item_id IN ?", ids).
			Delete(&models.PriceListItemRef{})
		if res.Error != nil {
			return repo.MapError(res.Error, "price list not found", "delete price list item refs")
		}
		removed = int(res.RowsAffected)

		dangling, err := tx.pruneDangling(ctx, listID)
		if err != nil {
			return err
		}
		removed += int(dangling)
		return nil
	})
	return removed, err
}

func (r *Repository) pruneDangling(ctx context.Context, listID uuid.UUID) (int64, error) {
	live := r.DB(ctx).Model(&models.PriceListItem{}).Select("id")
	res := r.DB(ctx).
		Where("price_list_id = ?", listID).
		Where("item_id NOT IN (?)", live).
		Delete(&models.PriceListItemRef{})
	if res.Error != nil {
		return 0, repo.MapError(res.Error, "price list not found", "prune price list item refs")
	}
	return res.RowsAffected, nil
}

// Delete removes the list together with every item it owns or references.
func (r *Repository) Delete(ctx context.Context, listID uuid.UUID) error {
	return r.InTx(ctx, func(tx *Repository) error {
		if _, err := tx.Get(ctx, listID); err != nil {
			return err
		}
		referenced := tx.DB(ctx).
			Model(&models.PriceListItemRef{}).
			Select("item_id").
			Where("price_list_id = ?", listID)
		if err := tx.DB(ctx).
			Where("price_list_id = ? OR id IN (?)", listID, referenced).
			Delete(&models.PriceListItem{}).Error; err != nil {
			return repo.MapError(err, "price list item not found", "delete price list items")
		}
		if err := tx.DB(ctx).Where("price_list_id = ?", listID).Delete(&models.PriceListItemRef{}).Error; err != nil {
			return repo.MapError(err, "price list not found", "delete price list item refs")
		}
		if err := tx.DB(ctx).Where("id = ?", listID).Delete(&models.PriceList{}).Error; err != nil {
			return repo.MapError(err, "price list not found", "delete price list")
		}
		return nil
	})
}
