package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// StockRepository 库存快照仓库
type StockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓库
func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// GetByMaterialID 获取物料库存快照
func (r *StockRepository) GetByMaterialID(ctx context.Context, materialID string) (*entity.Stock, error) {
	var stock entity.Stock
	err := r.db.WithContext(ctx).Where("material_id = ?", materialID).First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// Snapshot 批量读取物料库存，不存在的物料不在返回map中
func (r *StockRepository) Snapshot(ctx context.Context, materialIDs []string) (map[string]entity.Stock, error) {
	var stocks []entity.Stock
	if err := r.db.WithContext(ctx).Where("material_id IN ?", materialIDs).Find(&stocks).Error; err != nil {
		return nil, err
	}
	result := make(map[string]entity.Stock, len(stocks))
	for _, s := range stocks {
		result[s.MaterialID] = s
	}
	return result, nil
}

// Upsert 设置物料的现有量与出库占用量
func (r *StockRepository) Upsert(ctx context.Context, materialID string, onHand, outgoing float64) error {
	var stock entity.Stock
	err := r.db.WithContext(ctx).Where("material_id = ?", materialID).First(&stock).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now()
		stock = entity.Stock{
			ID:          generateID(),
			MaterialID:  materialID,
			OnHandQty:   onHand,
			OutgoingQty: outgoing,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return r.db.WithContext(ctx).Create(&stock).Error
	}

	return r.db.WithContext(ctx).
		Model(&entity.Stock{}).
		Where("material_id = ?", materialID).
		Updates(map[string]interface{}{
			"on_hand_qty":  onHand,
			"outgoing_qty": outgoing,
			"updated_at":   time.Now(),
		}).Error
}
