package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AllocationService 生产下单服务：把计划量按批次转为生产订单。
// 支持多次部分下单，主产品与部件的额度都按台账历史全量重算，从不增量累计。
type AllocationService struct {
	planningRepo   *repository.PlanningRepository
	productionRepo *repository.ProductionRepository
	codes          *CodeGenerator
	db             *gorm.DB
	logger         *zap.Logger
}

// NewAllocationService 创建下单服务
func NewAllocationService(
	planningRepo *repository.PlanningRepository,
	productionRepo *repository.ProductionRepository,
	codes *CodeGenerator,
	db *gorm.DB,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		planningRepo:   planningRepo,
		productionRepo: productionRepo,
		codes:          codes,
		db:             db,
		logger:         logger,
	}
}

// AllocateRequest 下单请求
type AllocateRequest struct {
	Quantity          float64 `json:"quantity" binding:"required,gt=0"`
	ProrateComponents *bool   `json:"prorate_components"` // 省略时等比下达部件订单；false 只下主产品
	Strict            bool    `json:"strict"`             // 严格模式下存在缺料则阻断
}

func (r AllocateRequest) prorate() bool {
	return r.ProrateComponents == nil || *r.ProrateComponents
}

// AllocationResult 下单结果
type AllocationResult struct {
	Plan             *entity.MaterialPlan             `json:"plan"`
	Orders           []*entity.ProductionOrder        `json:"orders"`
	ShortageWarnings []entity.MaterialRequirementLine `json:"shortage_warnings,omitempty"`
}

// Allocate 对计划下达一次生产订单。
// 校验顺序：数量合法性 → 计划状态 → 剩余量 → 缺料 → 部件额度。
// 整个下单在单事务内完成，任一校验失败不产生任何订单。
// 关闭 prorate_components 时只下主产品订单，部件额度留给后续批次。
func (s *AllocationService) Allocate(ctx context.Context, planID string, req AllocateRequest, userID string) (*AllocationResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	result := &AllocationResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.planningRepo.GetForUpdate(tx, planID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		switch plan.Status {
		case entity.PlanStatusMaterialPlanned, entity.PlanStatusWorkOrdersCreated:
		default:
			return &PlanNotReadyError{PlanID: plan.ID, Status: plan.Status, Needed: "material_planned/work_orders_created"}
		}

		// 剩余量按锁内读取的台账重算
		produced := plan.ProducedQty()
		remaining := plan.Quantity - produced
		if remaining < 0 {
			remaining = 0
		}
		if req.Quantity > remaining {
			return &QuantityExceedsRemainingError{
				Requested: req.Quantity,
				Planned:   plan.Quantity,
				Produced:  produced,
				Remaining: remaining,
			}
		}

		// 缺料检查：严格模式阻断，否则仅告警
		var shortLines []entity.MaterialRequirementLine
		if err := tx.Where("plan_id = ? AND shortage_qty > 0", plan.ID).
			Find(&shortLines).Error; err != nil {
			return err
		}
		if len(shortLines) > 0 {
			if req.Strict {
				return &MaterialShortageError{Lines: shortLines}
			}
			result.ShortageWarnings = shortLines
			s.logger.Warn("下单时存在物料缺口",
				zap.String("plan_id", plan.ID),
				zap.Int("shortage_lines", len(shortLines)))
		}

		var comps []entity.PlanningComponent
		if req.prorate() {
			if err := tx.Where("plan_id = ?", plan.ID).
				Order("sequence ASC").
				Find(&comps).Error; err != nil {
				return err
			}
		}

		// 部件订单按 下单量/计划量 等比折算；计划量为0时按1:1
		ratio := decimal.NewFromInt(1)
		if plan.Quantity != 0 {
			ratio = decimal.NewFromFloat(req.Quantity).
				Div(decimal.NewFromFloat(plan.Quantity))
		}

		var orders []*entity.ProductionOrder

		mainCode, err := s.codes.NextInTx(tx, "MO")
		if err != nil {
			return err
		}
		mainOrder := &entity.ProductionOrder{
			ID:        uuid.New().String(),
			Code:      mainCode,
			ProductID: plan.ProductID,
			Quantity:  req.Quantity,
			Origin:    plan.Code,
			Status:    entity.OrderStatusDraft,
			CreatedBy: userID,
		}
		orders = append(orders, mainOrder)

		for _, comp := range comps {
			// 无BOM的部件是采购件，走请购而非生产订单
			if comp.BOMID == nil {
				continue
			}

			compQty := decimal.NewFromFloat(comp.Quantity).Mul(ratio).Round(4)

			// 部件额度按台账历史全量重算
			already, err := s.planningRepo.SumOrderedQty(tx, plan.ID, comp.ComponentID)
			if err != nil {
				return err
			}
			total := decimal.NewFromFloat(already).Add(compQty)
			if total.GreaterThan(decimal.NewFromFloat(comp.Quantity)) {
				name := comp.ComponentID
				if comp.Component != nil {
					name = comp.Component.Name
				}
				totalF, _ := total.Float64()
				return &ComponentQuantityExceededError{
					ComponentID:   comp.ComponentID,
					ComponentName: name,
					Requested:     totalF,
					Allowed:       comp.Quantity,
				}
			}

			qtyF, _ := compQty.Float64()
			compCode, err := s.codes.NextInTx(tx, "MO")
			if err != nil {
				return err
			}
			orders = append(orders, &entity.ProductionOrder{
				ID:        uuid.New().String(),
				Code:      compCode,
				ProductID: comp.ComponentID,
				Quantity:  qtyF,
				BOMID:     comp.BOMID,
				Origin:    plan.Code,
				Status:    entity.OrderStatusDraft,
				CreatedBy: userID,
			})
		}

		for _, order := range orders {
			if err := s.productionRepo.CreateInTx(tx, order); err != nil {
				return fmt.Errorf("创建生产订单失败: %w", err)
			}
		}
		if err := s.planningRepo.AppendOrders(tx, plan, orders); err != nil {
			return fmt.Errorf("记录订单台账失败: %w", err)
		}

		if plan.Status != entity.PlanStatusWorkOrdersCreated {
			if err := tx.Model(&entity.MaterialPlan{}).
				Where("id = ?", plan.ID).
				Update("status", entity.PlanStatusWorkOrdersCreated).Error; err != nil {
				return err
			}
		}

		result.Orders = orders
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan, err := s.planningRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	result.Plan = plan

	s.logger.Info("生产下单完成",
		zap.String("plan_id", planID),
		zap.Float64("quantity", req.Quantity),
		zap.Int("orders", len(result.Orders)))
	return result, nil
}
