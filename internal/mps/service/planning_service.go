package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanningService 物料计划服务：负责计划状态机、部件冻结复制与物料需求计算
type PlanningService struct {
	planningRepo *repository.PlanningRepository
	pricingRepo  *repository.PricingRepository
	projectRepo  *repository.ProjectRepository
	bomRepo      *repository.BOMRepository
	stockRepo    *repository.StockRepository
	reports      *ReportService
	codes        *CodeGenerator
}

// NewPlanningService 创建计划服务
func NewPlanningService(
	planningRepo *repository.PlanningRepository,
	pricingRepo *repository.PricingRepository,
	projectRepo *repository.ProjectRepository,
	bomRepo *repository.BOMRepository,
	stockRepo *repository.StockRepository,
	reports *ReportService,
	codes *CodeGenerator,
) *PlanningService {
	return &PlanningService{
		planningRepo: planningRepo,
		pricingRepo:  pricingRepo,
		projectRepo:  projectRepo,
		bomRepo:      bomRepo,
		stockRepo:    stockRepo,
		reports:      reports,
		codes:        codes,
	}
}

// CreatePlanRequest 创建计划请求
type CreatePlanRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	PricingID string `json:"pricing_id"` // 为空时取最新确认/审批版本
	Notes     string `json:"notes"`
}

// Create 创建计划。数量与重量从定价版本镜像，初始状态 draft。
func (s *PlanningService) Create(ctx context.Context, req CreatePlanRequest, userID string) (*entity.MaterialPlan, error) {
	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID); err != nil {
		return nil, fmt.Errorf("项目不存在: %w", err)
	}

	var pricing *entity.Pricing
	var err error
	if req.PricingID != "" {
		pricing, err = s.pricingRepo.GetByID(ctx, req.PricingID)
		if err != nil {
			return nil, fmt.Errorf("定价版本不存在: %w", err)
		}
		if pricing.Status != entity.PricingStatusConfirmed && pricing.Status != entity.PricingStatusApproved {
			return nil, fmt.Errorf("定价版本未确认，不能用于计划: %s", pricing.Status)
		}
	} else {
		pricing, err = s.pricingRepo.GetLatestUsable(ctx, req.ProjectID, req.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("项目产品没有可用的定价版本")
			}
			return nil, fmt.Errorf("查询定价版本失败: %w", err)
		}
	}

	code, err := s.codes.Next(ctx, "MP")
	if err != nil {
		return nil, err
	}
	plan := &entity.MaterialPlan{
		ID:        uuid.New().String(),
		Code:      code,
		ProjectID: req.ProjectID,
		ProductID: req.ProductID,
		PricingID: &pricing.ID,
		Quantity:  pricing.Quantity,
		Weight:    pricing.Weight,
		Status:    entity.PlanStatusDraft,
		Notes:     req.Notes,
		CreatedBy: userID,
	}

	if err := s.planningRepo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("创建计划失败: %w", err)
	}
	return plan, nil
}

// GetByID 获取计划详情
func (s *PlanningService) GetByID(ctx context.Context, id string) (*entity.MaterialPlan, error) {
	plan, err := s.planningRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// List 分页查询计划
func (s *PlanningService) List(ctx context.Context, projectID, productID, status string, page, pageSize int) ([]entity.MaterialPlan, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.planningRepo.List(ctx, projectID, productID, status, page, pageSize)
}

// LoadComponents 从定价版本冻结复制部件行（含规格与附加代码）。
// 整表替换，可重复执行；下单后不允许再加载。
func (s *PlanningService) LoadComponents(ctx context.Context, planID string) (*entity.MaterialPlan, error) {
	plan, err := s.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	switch plan.Status {
	case entity.PlanStatusDraft, entity.PlanStatusComponentsLoaded, entity.PlanStatusMaterialPlanned:
	default:
		return nil, &PlanNotReadyError{PlanID: plan.ID, Status: plan.Status, Needed: "draft/components_loaded/material_planned"}
	}
	if plan.PricingID == nil {
		return nil, fmt.Errorf("计划没有关联定价版本")
	}

	pricing, err := s.pricingRepo.GetByID(ctx, *plan.PricingID)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}

	comps := make([]entity.PlanningComponent, 0, len(pricing.Components))
	for _, pc := range pricing.Components {
		comp := entity.PlanningComponent{
			ID:             uuid.New().String(),
			PlanID:         plan.ID,
			Sequence:       pc.Sequence,
			ComponentID:    pc.ComponentID,
			Quantity:       pc.Quantity,
			Weight:         pc.Weight,
			CostPrice:      pc.CostPrice,
			BOMID:          pc.BOMID,
			AdditionalCode: pc.AdditionalCode,
		}
		for _, sv := range pc.Specifications {
			comp.Specifications = append(comp.Specifications, entity.SpecificationValue{
				ID:                  uuid.New().String(),
				PlanningComponentID: &comp.ID,
				SpecificationID:     sv.SpecificationID,
				SpecificationName:   sv.SpecificationName,
				Value:               sv.Value,
				Sequence:            sv.Sequence,
				Notes:               sv.Notes,
			})
		}
		comps = append(comps, comp)
	}

	if err := s.planningRepo.ReplaceComponents(ctx, plan.ID, comps); err != nil {
		return nil, fmt.Errorf("加载部件失败: %w", err)
	}

	// 只改状态列，避免 Save 把内存里的旧关联行重新写回
	err = s.planningRepo.DB().WithContext(ctx).
		Model(&entity.MaterialPlan{}).
		Where("id = ?", plan.ID).
		Update("status", entity.PlanStatusComponentsLoaded).Error
	if err != nil {
		return nil, fmt.Errorf("更新计划状态失败: %w", err)
	}
	return s.GetByID(ctx, planID)
}

// ComputeRequirements 计算物料需求：BOM展开 + 库存净算。
// 每个部件行按其BOM行项展开，required = 单位用量 × 部件数量；
// 无BOM的部件视为直接采购件，需求即部件本身。
// available = 现有量 − 出库占用量，负值如实下传；shortage = max(0, required − available)。
// 需求行整表替换，重复执行结果一致。
func (s *PlanningService) ComputeRequirements(ctx context.Context, planID string) (*entity.MaterialPlan, error) {
	plan, err := s.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	switch plan.Status {
	case entity.PlanStatusComponentsLoaded, entity.PlanStatusMaterialPlanned:
	default:
		return nil, &PlanNotReadyError{PlanID: plan.ID, Status: plan.Status, Needed: "components_loaded/material_planned"}
	}
	if len(plan.Components) == 0 {
		return nil, ErrNoComponents
	}

	var lines []entity.MaterialRequirementLine
	for _, comp := range plan.Components {
		if comp.BOMID != nil {
			items, err := s.bomRepo.GetItems(ctx, *comp.BOMID)
			if err != nil {
				return nil, fmt.Errorf("读取BOM明细失败: %w", err)
			}
			for _, item := range items {
				lines = append(lines, entity.MaterialRequirementLine{
					ID:          uuid.New().String(),
					PlanID:      plan.ID,
					ComponentID: comp.ComponentID,
					MaterialID:  item.MaterialID,
					RequiredQty: item.QtyPerUnit * comp.Quantity,
				})
			}
		} else {
			lines = append(lines, entity.MaterialRequirementLine{
				ID:          uuid.New().String(),
				PlanID:      plan.ID,
				ComponentID: comp.ComponentID,
				MaterialID:  comp.ComponentID,
				RequiredQty: comp.Quantity,
			})
		}
	}

	materialIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		materialIDs = append(materialIDs, line.MaterialID)
	}
	stocks, err := s.stockRepo.Snapshot(ctx, materialIDs)
	if err != nil {
		return nil, fmt.Errorf("读取库存失败: %w", err)
	}

	for i := range lines {
		line := &lines[i]
		if stock, ok := stocks[line.MaterialID]; ok {
			line.AvailableQty = stock.OnHandQty - stock.OutgoingQty
		}
		shortage := line.RequiredQty - line.AvailableQty
		if shortage < 0 {
			shortage = 0
		}
		line.ShortageQty = shortage

		switch {
		case shortage == 0:
			line.Status = entity.RequirementStatusSufficient
		case line.AvailableQty > 0:
			line.Status = entity.RequirementStatusPartial
		default:
			line.Status = entity.RequirementStatusShortage
		}
	}

	err = s.planningRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.planningRepo.ReplaceRequirements(tx, plan.ID, lines); err != nil {
			return err
		}
		return tx.Model(&entity.MaterialPlan{}).
			Where("id = ?", plan.ID).
			Update("status", entity.PlanStatusMaterialPlanned).Error
	})
	if err != nil {
		return nil, fmt.Errorf("保存物料需求失败: %w", err)
	}

	if s.reports != nil {
		s.reports.InvalidatePlan(ctx, plan.ID)
	}
	return s.GetByID(ctx, planID)
}

// Done 完成计划
func (s *PlanningService) Done(ctx context.Context, planID string) (*entity.MaterialPlan, error) {
	plan, err := s.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != entity.PlanStatusWorkOrdersCreated {
		return nil, &PlanNotReadyError{PlanID: plan.ID, Status: plan.Status, Needed: "work_orders_created"}
	}
	plan.Status = entity.PlanStatusDone
	if err := s.planningRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("完成计划失败: %w", err)
	}
	return plan, nil
}

// Cancel 取消计划，终态计划不允许取消
func (s *PlanningService) Cancel(ctx context.Context, planID string) (*entity.MaterialPlan, error) {
	plan, err := s.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsTerminal() {
		return nil, &PlanNotReadyError{PlanID: plan.ID, Status: plan.Status, Needed: "非终态"}
	}
	plan.Status = entity.PlanStatusCancelled
	if err := s.planningRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("取消计划失败: %w", err)
	}
	return plan, nil
}
