package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// BOMRepository BOM仓库
type BOMRepository struct {
	db *gorm.DB
}

// NewBOMRepository 创建BOM仓库
func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// Create 创建BOM（含行项与工艺路线）
func (r *BOMRepository) Create(ctx context.Context, bom *entity.BOMHeader) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

// GetByID 根据ID获取BOM，行项与工序按sequence排序
func (r *BOMRepository) GetByID(ctx context.Context, id string) (*entity.BOMHeader, error) {
	var bom entity.BOMHeader
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Routing", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&bom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bom, nil
}

// GetReleasedByProductID 获取产品最新的已发布BOM
func (r *BOMRepository) GetReleasedByProductID(ctx context.Context, productID string) (*entity.BOMHeader, error) {
	var bom entity.BOMHeader
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Routing", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("product_id = ? AND status = ?", productID, entity.BOMStatusReleased).
		Order("created_at DESC").
		First(&bom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bom, nil
}

// GetItems 获取BOM的所有行项
func (r *BOMRepository) GetItems(ctx context.Context, bomHeaderID string) ([]entity.BOMItem, error) {
	var items []entity.BOMItem
	err := r.db.WithContext(ctx).
		Where("bom_header_id = ?", bomHeaderID).
		Order("sequence ASC").
		Find(&items).Error
	return items, err
}

// GetRouting 获取BOM的工艺路线
func (r *BOMRepository) GetRouting(ctx context.Context, bomHeaderID string) ([]entity.RoutingOperation, error) {
	var ops []entity.RoutingOperation
	err := r.db.WithContext(ctx).
		Where("bom_header_id = ?", bomHeaderID).
		Order("sequence ASC").
		Find(&ops).Error
	return ops, err
}

// Update 更新BOM
func (r *BOMRepository) Update(ctx context.Context, bom *entity.BOMHeader) error {
	return r.db.WithContext(ctx).Save(bom).Error
}

// List 分页查询BOM
func (r *BOMRepository) List(ctx context.Context, productID, status string, page, pageSize int) ([]entity.BOMHeader, int64, error) {
	var boms []entity.BOMHeader
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BOMHeader{})
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&boms).Error
	return boms, total, err
}
