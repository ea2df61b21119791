package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanningRepository 物料计划仓库
type PlanningRepository struct {
	db *gorm.DB
}

// NewPlanningRepository 创建计划仓库
func NewPlanningRepository(db *gorm.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// DB 暴露底层连接，供服务层开启事务
func (r *PlanningRepository) DB() *gorm.DB {
	return r.db
}

// Create 创建计划
func (r *PlanningRepository) Create(ctx context.Context, plan *entity.MaterialPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// GetByID 根据ID获取计划（含部件行、需求行、订单台账）
func (r *PlanningRepository) GetByID(ctx context.Context, id string) (*entity.MaterialPlan, error) {
	var plan entity.MaterialPlan
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Components.Component").
		Preload("Components.Specifications", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Requirements").
		Preload("ProductionOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetForUpdate 事务内按行锁读取计划（sqlite不支持FOR UPDATE，依赖其库级写锁）
func (r *PlanningRepository) GetForUpdate(tx *gorm.DB, id string) (*entity.MaterialPlan, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var plan entity.MaterialPlan
	err := query.Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// 台账另查，避免锁子句污染关联查询
	err = tx.Model(&plan).
		Order("created_at ASC").
		Association("ProductionOrders").
		Find(&plan.ProductionOrders)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Update 更新计划
func (r *PlanningRepository) Update(ctx context.Context, plan *entity.MaterialPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// List 分页查询计划
func (r *PlanningRepository) List(ctx context.Context, projectID, productID, status string, page, pageSize int) ([]entity.MaterialPlan, int64, error) {
	var plans []entity.MaterialPlan
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MaterialPlan{})
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

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&plans).Error
	return plans, total, err
}

// GetLatestForProduct 获取 项目+产品 的最新计划，statuses 非空时按状态过滤
func (r *PlanningRepository) GetLatestForProduct(ctx context.Context, projectID, productID string, statuses []string) (*entity.MaterialPlan, error) {
	var plan entity.MaterialPlan
	query := r.db.WithContext(ctx).
		Where("project_id = ? AND product_id = ?", projectID, productID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Order("created_at DESC").First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ReplaceComponents 整表替换计划部件行（事务内先删规格与旧行，再插新行）
func (r *PlanningRepository) ReplaceComponents(ctx context.Context, planID string, comps []entity.PlanningComponent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("planning_component_id IN (?)",
			tx.Model(&entity.PlanningComponent{}).Select("id").Where("plan_id = ?", planID)).
			Delete(&entity.SpecificationValue{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", planID).
			Delete(&entity.PlanningComponent{}).Error; err != nil {
			return err
		}
		if len(comps) == 0 {
			return nil
		}
		return tx.Create(&comps).Error
	})
}

// ReplaceRequirements 整表替换物料需求行
func (r *PlanningRepository) ReplaceRequirements(tx *gorm.DB, planID string, lines []entity.MaterialRequirementLine) error {
	if err := tx.Where("plan_id = ?", planID).
		Delete(&entity.MaterialRequirementLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.Create(&lines).Error
}

// AppendOrders 向计划台账追加生产订单关联（只追加，从不清空）
func (r *PlanningRepository) AppendOrders(tx *gorm.DB, plan *entity.MaterialPlan, orders []*entity.ProductionOrder) error {
	if len(orders) == 0 {
		return nil
	}
	items := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		items = append(items, o)
	}
	return tx.Model(plan).Association("ProductionOrders").Append(items...)
}

// SumOrderedQty 台账中指定产品的订单数量合计（按历史全量重算，不做增量）
func (r *PlanningRepository) SumOrderedQty(tx *gorm.DB, planID, productID string) (float64, error) {
	var total float64
	err := tx.Model(&entity.ProductionOrder{}).
		Select("COALESCE(SUM(mps_production_orders.quantity), 0)").
		Joins("JOIN mps_plan_production_orders ON mps_plan_production_orders.production_order_id = mps_production_orders.id").
		Where("mps_plan_production_orders.material_plan_id = ? AND mps_production_orders.product_id = ?", planID, productID).
		Scan(&total).Error
	return total, err
}
