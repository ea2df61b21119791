package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// RequisitionRepository 请购单仓库
type RequisitionRepository struct {
	db *gorm.DB
}

// NewRequisitionRepository 创建请购单仓库
func NewRequisitionRepository(db *gorm.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// Create 创建请购单（含行项）
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetByID 根据ID获取请购单
func (r *RequisitionRepository) GetByID(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Update 更新请购单
func (r *RequisitionRepository) Update(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// ListByPlan 获取计划下的请购单
func (r *RequisitionRepository) ListByPlan(ctx context.Context, planID string) ([]entity.Requisition, error) {
	var reqs []entity.Requisition
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("plan_id = ?", planID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}
