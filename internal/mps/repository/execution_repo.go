package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// ExecutionRepository 执行跟踪仓库
type ExecutionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository 创建执行跟踪仓库
func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// DB 暴露底层连接，供服务层开启事务
func (r *ExecutionRepository) DB() *gorm.DB {
	return r.db
}

// Create 创建执行跟踪
func (r *ExecutionRepository) Create(ctx context.Context, run *entity.ExecutionRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID 根据ID获取执行跟踪（含执行行与工序行）
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*entity.ExecutionRun, error) {
	var run entity.ExecutionRun
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Lines.OperationLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// GetByProjectProduct 获取 项目+产品 的执行跟踪
func (r *ExecutionRepository) GetByProjectProduct(ctx context.Context, projectID, productID string) (*entity.ExecutionRun, error) {
	var run entity.ExecutionRun
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND product_id = ?", projectID, productID).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// Update 更新执行跟踪
func (r *ExecutionRepository) Update(ctx context.Context, run *entity.ExecutionRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// List 分页查询执行跟踪
func (r *ExecutionRepository) List(ctx context.Context, projectID, status string, page, pageSize int) ([]entity.ExecutionRun, int64, error) {
	var runs []entity.ExecutionRun
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ExecutionRun{})
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
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
		Find(&runs).Error
	return runs, total, err
}

// DeleteLines 事务内删除执行行与其工序行（重载时整表重建）
func (r *ExecutionRepository) DeleteLines(tx *gorm.DB, runID string) error {
	if err := tx.Where("run_id = ?", runID).
		Delete(&entity.OperationLine{}).Error; err != nil {
		return err
	}
	return tx.Where("run_id = ?", runID).
		Delete(&entity.ExecutionLine{}).Error
}

// CreateLineInTx 事务内创建执行行（含工序行）
func (r *ExecutionRepository) CreateLineInTx(tx *gorm.DB, line *entity.ExecutionLine) error {
	return tx.Create(line).Error
}

// GetOperationLines 获取执行跟踪的所有工序行
func (r *ExecutionRepository) GetOperationLines(ctx context.Context, runID string) ([]entity.OperationLine, error) {
	var lines []entity.OperationLine
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("sequence ASC").
		Find(&lines).Error
	return lines, err
}

// GetOperationLine 获取单个工序行
func (r *ExecutionRepository) GetOperationLine(ctx context.Context, id string) (*entity.OperationLine, error) {
	var line entity.OperationLine
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// UpdateOperationLine 更新工序行
func (r *ExecutionRepository) UpdateOperationLine(ctx context.Context, line *entity.OperationLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}
