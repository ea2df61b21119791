package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository 单号计数器仓库
type SequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository 创建计数器仓库
func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next 取指定计数器的下一个序号，独立事务
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := r.NextInTx(tx, name)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, err
}

// NextInTx 在既有事务内取下一个序号，供下单等长事务复用
func (r *SequenceRepository) NextInTx(tx *gorm.DB, name string) (int64, error) {
	seq := entity.Sequence{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&entity.Sequence{}).
		Where("name = ?", name).
		Update("value", gorm.Expr("value + 1")).Error; err != nil {
		return 0, err
	}
	var row entity.Sequence
	if err := tx.Where("name = ?", name).First(&row).Error; err != nil {
		return 0, err
	}
	return row.Value, nil
}
