package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// PricingRepository 定价版本仓库
type PricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建定价仓库
func NewPricingRepository(db *gorm.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// Create 创建定价版本（含部件行与规格）
func (r *PricingRepository) Create(ctx context.Context, pricing *entity.Pricing) error {
	return r.db.WithContext(ctx).Create(pricing).Error
}

// GetByID 根据ID获取定价版本（含部件行、规格、部件产品）
func (r *PricingRepository) GetByID(ctx context.Context, id string) (*entity.Pricing, error) {
	var pricing entity.Pricing
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Components.Component").
		Preload("Components.Specifications", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&pricing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pricing, nil
}

// Update 更新定价版本
func (r *PricingRepository) Update(ctx context.Context, pricing *entity.Pricing) error {
	return r.db.WithContext(ctx).Save(pricing).Error
}

// List 分页查询定价版本
func (r *PricingRepository) List(ctx context.Context, projectID, productID, status string, page, pageSize int) ([]entity.Pricing, int64, error) {
	var pricings []entity.Pricing
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Pricing{})
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("version DESC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&pricings).Error
	return pricings, total, err
}

// MaxVersion 项目+产品 当前最大版本号，无记录时为0
func (r *PricingRepository) MaxVersion(ctx context.Context, projectID, productID string) (int, error) {
	var maxVersion int
	err := r.db.WithContext(ctx).
		Model(&entity.Pricing{}).
		Select("COALESCE(MAX(version), 0)").
		Where("project_id = ? AND product_id = ?", projectID, productID).
		Scan(&maxVersion).Error
	return maxVersion, err
}

// GetLatestUsable 获取 项目+产品 最新的已确认/已审批定价版本
func (r *PricingRepository) GetLatestUsable(ctx context.Context, projectID, productID string) (*entity.Pricing, error) {
	var pricing entity.Pricing
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Components.Component").
		Preload("Components.Specifications", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("project_id = ? AND product_id = ? AND status IN ?",
			projectID, productID,
			[]string{entity.PricingStatusConfirmed, entity.PricingStatusApproved}).
		Order("version DESC").
		First(&pricing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pricing, nil
}

// GetComponent 获取定价部件行（含规格）
func (r *PricingRepository) GetComponent(ctx context.Context, componentID string) (*entity.PricingComponent, error) {
	var comp entity.PricingComponent
	err := r.db.WithContext(ctx).
		Preload("Specifications", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", componentID).
		First(&comp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comp, nil
}

// UpdateComponent 更新定价部件行
func (r *PricingRepository) UpdateComponent(ctx context.Context, comp *entity.PricingComponent) error {
	return r.db.WithContext(ctx).Save(comp).Error
}

// ReplaceComponentSpecs 整表替换定价部件行的规格（事务内先删后插）
func (r *PricingRepository) ReplaceComponentSpecs(ctx context.Context, componentID string, specs []entity.SpecificationValue) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pricing_component_id = ?", componentID).
			Delete(&entity.SpecificationValue{}).Error; err != nil {
			return err
		}
		for i := range specs {
			specs[i].PricingComponentID = &componentID
		}
		if len(specs) == 0 {
			return nil
		}
		return tx.Create(&specs).Error
	})
}
