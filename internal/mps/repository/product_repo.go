package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// ProductRepository 产品/物料仓库
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建产品仓库
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create 创建产品
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID 根据ID获取产品
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetByCode 根据编码获取产品
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetByIDs 批量获取产品
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error) {
	var products []entity.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	result := make(map[string]entity.Product, len(products))
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// Update 更新产品
func (r *ProductRepository) Update(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// List 分页查询产品
func (r *ProductRepository) List(ctx context.Context, keyword, status string, page, pageSize int) ([]entity.Product, int64, error) {
	var products []entity.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("code LIKE ? OR name LIKE ?", like, like)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("code ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error
	return products, total, err
}
