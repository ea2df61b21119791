package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// ProductionRepository 生产订单仓库
type ProductionRepository struct {
	db *gorm.DB
}

// NewProductionRepository 创建生产订单仓库
func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// Create 创建生产订单（含工序）
func (r *ProductionRepository) Create(ctx context.Context, order *entity.ProductionOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// CreateInTx 事务内创建生产订单
func (r *ProductionRepository) CreateInTx(tx *gorm.DB, order *entity.ProductionOrder) error {
	return tx.Create(order).Error
}

// GetByID 根据ID获取生产订单（工序按sequence排序）
func (r *ProductionRepository) GetByID(ctx context.Context, id string) (*entity.ProductionOrder, error) {
	var order entity.ProductionOrder
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Update 更新生产订单
func (r *ProductionRepository) Update(ctx context.Context, order *entity.ProductionOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// UpdateStatus 更新订单状态
func (r *ProductionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&entity.ProductionOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// GetOperations 获取订单工序
func (r *ProductionRepository) GetOperations(ctx context.Context, orderID string) ([]entity.ProductionOperation, error) {
	var ops []entity.ProductionOperation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sequence ASC").
		Find(&ops).Error
	return ops, err
}

// CreateOperations 批量创建订单工序
func (r *ProductionRepository) CreateOperations(ctx context.Context, ops []entity.ProductionOperation) error {
	if len(ops) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ops).Error
}

// UpdateOperation 更新订单工序
func (r *ProductionRepository) UpdateOperation(ctx context.Context, op *entity.ProductionOperation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

// List 分页查询生产订单
func (r *ProductionRepository) List(ctx context.Context, productID, origin, status string, page, pageSize int) ([]entity.ProductionOrder, int64, error) {
	var orders []entity.ProductionOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionOrder{})
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if origin != "" {
		query = query.Where("origin = ?", origin)
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
		Find(&orders).Error
	return orders, total, err
}
