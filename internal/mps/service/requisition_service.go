package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
)

// RequisitionService 缺料请购服务
type RequisitionService struct {
	requisitionRepo *repository.RequisitionRepository
	planningRepo    *repository.PlanningRepository
	productRepo     *repository.ProductRepository
	stockRepo       *repository.StockRepository
	codes           *CodeGenerator
}

// NewRequisitionService 创建请购服务
func NewRequisitionService(
	requisitionRepo *repository.RequisitionRepository,
	planningRepo *repository.PlanningRepository,
	productRepo *repository.ProductRepository,
	stockRepo *repository.StockRepository,
	codes *CodeGenerator,
) *RequisitionService {
	return &RequisitionService{
		requisitionRepo: requisitionRepo,
		planningRepo:    planningRepo,
		productRepo:     productRepo,
		stockRepo:       stockRepo,
		codes:           codes,
	}
}

// CreateFromPlanRequest 按计划缺口创建请购单请求
type CreateFromPlanRequest struct {
	SupplierName string `json:"supplier_name"`
	Notes        string `json:"notes"`
}

// CreateFromPlan 按计划的需求缺口生成请购单。
// 缺口按物料归并求和，单价取物料标准成本。
func (s *RequisitionService) CreateFromPlan(ctx context.Context, planID string, req CreateFromPlanRequest, userID string) (*entity.Requisition, error) {
	plan, err := s.planningRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, ErrPlanNotFound
	}
	if plan.Status != entity.PlanStatusMaterialPlanned && plan.Status != entity.PlanStatusWorkOrdersCreated {
		return nil, &PlanNotReadyError{PlanID: plan.ID, Status: plan.Status, Needed: "material_planned/work_orders_created"}
	}

	shortageByMaterial := make(map[string]float64)
	for _, line := range plan.Requirements {
		if line.ShortageQty > 0 {
			shortageByMaterial[line.MaterialID] += line.ShortageQty
		}
	}
	if len(shortageByMaterial) == 0 {
		return nil, ErrNoShortage
	}

	materialIDs := make([]string, 0, len(shortageByMaterial))
	for id := range shortageByMaterial {
		materialIDs = append(materialIDs, id)
	}
	sort.Strings(materialIDs)

	products, err := s.productRepo.GetByIDs(ctx, materialIDs)
	if err != nil {
		return nil, fmt.Errorf("读取物料失败: %w", err)
	}

	code, err := s.codes.Next(ctx, "PR")
	if err != nil {
		return nil, err
	}
	requisition := &entity.Requisition{
		ID:           uuid.New().String(),
		Code:         code,
		PlanID:       plan.ID,
		SupplierName: req.SupplierName,
		Status:       entity.RequisitionStatusDraft,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}
	for _, materialID := range materialIDs {
		line := entity.RequisitionLine{
			ID:            uuid.New().String(),
			RequisitionID: requisition.ID,
			MaterialID:    materialID,
			Quantity:      shortageByMaterial[materialID],
		}
		if p, ok := products[materialID]; ok {
			line.UnitPrice = p.StandardCost
		}
		requisition.Lines = append(requisition.Lines, line)
	}

	if err := s.requisitionRepo.Create(ctx, requisition); err != nil {
		return nil, fmt.Errorf("创建请购单失败: %w", err)
	}
	return requisition, nil
}

// GetByID 获取请购单详情
func (s *RequisitionService) GetByID(ctx context.Context, id string) (*entity.Requisition, error) {
	return s.requisitionRepo.GetByID(ctx, id)
}

// ListByPlan 获取计划下的请购单
func (s *RequisitionService) ListByPlan(ctx context.Context, planID string) ([]entity.Requisition, error) {
	return s.requisitionRepo.ListByPlan(ctx, planID)
}

// Confirm 确认请购单，对应需求行转为已订购
func (s *RequisitionService) Confirm(ctx context.Context, id string) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("请购单不存在: %w", err)
	}
	if requisition.Status != entity.RequisitionStatusDraft {
		return nil, fmt.Errorf("请购单状态不允许确认: %s", requisition.Status)
	}

	requisition.Status = entity.RequisitionStatusConfirmed
	if err := s.requisitionRepo.Update(ctx, requisition); err != nil {
		return nil, fmt.Errorf("确认请购单失败: %w", err)
	}

	if err := s.markRequirements(ctx, requisition, entity.RequirementStatusOrdered); err != nil {
		return nil, err
	}
	return requisition, nil
}

// Receive 到货：需求行转为已收货，收货量计入库存现有量
func (s *RequisitionService) Receive(ctx context.Context, id string) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("请购单不存在: %w", err)
	}
	if requisition.Status != entity.RequisitionStatusConfirmed {
		return nil, fmt.Errorf("请购单状态不允许收货: %s", requisition.Status)
	}

	for _, line := range requisition.Lines {
		onHand, outgoing := 0.0, 0.0
		if stock, err := s.stockRepo.GetByMaterialID(ctx, line.MaterialID); err == nil {
			onHand = stock.OnHandQty
			outgoing = stock.OutgoingQty
		}
		if err := s.stockRepo.Upsert(ctx, line.MaterialID, onHand+line.Quantity, outgoing); err != nil {
			return nil, fmt.Errorf("入库失败: %w", err)
		}
	}

	requisition.Status = entity.RequisitionStatusReceived
	if err := s.requisitionRepo.Update(ctx, requisition); err != nil {
		return nil, fmt.Errorf("收货失败: %w", err)
	}

	if err := s.markRequirements(ctx, requisition, entity.RequirementStatusReceived); err != nil {
		return nil, err
	}
	return requisition, nil
}

func (s *RequisitionService) markRequirements(ctx context.Context, requisition *entity.Requisition, status string) error {
	materialIDs := make([]string, 0, len(requisition.Lines))
	for _, line := range requisition.Lines {
		materialIDs = append(materialIDs, line.MaterialID)
	}
	err := s.planningRepo.DB().WithContext(ctx).
		Model(&entity.MaterialRequirementLine{}).
		Where("plan_id = ? AND material_id IN ? AND shortage_qty > 0", requisition.PlanID, materialIDs).
		Updates(map[string]interface{}{"status": status}).Error
	if err != nil {
		return fmt.Errorf("更新需求行状态失败: %w", err)
	}
	return nil
}
