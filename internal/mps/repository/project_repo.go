package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓库
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// GetByID 根据ID获取项目（含产品行）
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Preload("ProductLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("ProductLines.Product").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// List 分页查询项目
func (r *ProjectRepository) List(ctx context.Context, keyword, status string, page, pageSize int) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("code LIKE ? OR name LIKE ? OR customer_name LIKE ?", like, like, like)
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
		Find(&projects).Error
	return projects, total, err
}

// AddProductLine 添加项目产品行
func (r *ProjectRepository) AddProductLine(ctx context.Context, line *entity.ProjectProductLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// GetProductLine 获取项目中某产品的行
func (r *ProjectRepository) GetProductLine(ctx context.Context, projectID, productID string) (*entity.ProjectProductLine, error) {
	var line entity.ProjectProductLine
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND product_id = ?", projectID, productID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// UpdateProductLine 更新项目产品行
func (r *ProjectRepository) UpdateProductLine(ctx context.Context, line *entity.ProjectProductLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}
