package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
)

// ProductionService 生产订单服务
type ProductionService struct {
	productionRepo *repository.ProductionRepository
	productRepo    *repository.ProductRepository
	bomRepo        *repository.BOMRepository
	codes          *CodeGenerator
}

// NewProductionService 创建生产订单服务
func NewProductionService(
	productionRepo *repository.ProductionRepository,
	productRepo *repository.ProductRepository,
	bomRepo *repository.BOMRepository,
	codes *CodeGenerator,
) *ProductionService {
	return &ProductionService{
		productionRepo: productionRepo,
		productRepo:    productRepo,
		bomRepo:        bomRepo,
		codes:          codes,
	}
}

// CreateOrderRequest 手工创建生产订单请求
type CreateOrderRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	BOMID     string  `json:"bom_id"`
	Origin    string  `json:"origin"`
}

// Create 手工创建生产订单
func (s *ProductionService) Create(ctx context.Context, req CreateOrderRequest, userID string) (*entity.ProductionOrder, error) {
	if _, err := s.productRepo.GetByID(ctx, req.ProductID); err != nil {
		return nil, fmt.Errorf("产品不存在: %w", err)
	}

	code, err := s.codes.Next(ctx, "MO")
	if err != nil {
		return nil, err
	}
	order := &entity.ProductionOrder{
		ID:        uuid.New().String(),
		Code:      code,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Origin:    req.Origin,
		Status:    entity.OrderStatusDraft,
		CreatedBy: userID,
	}
	if req.BOMID != "" {
		if _, err := s.bomRepo.GetByID(ctx, req.BOMID); err != nil {
			return nil, fmt.Errorf("BOM不存在: %w", err)
		}
		order.BOMID = &req.BOMID
	}

	if err := s.productionRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建生产订单失败: %w", err)
	}
	return order, nil
}

// GetByID 获取生产订单详情
func (s *ProductionService) GetByID(ctx context.Context, id string) (*entity.ProductionOrder, error) {
	return s.productionRepo.GetByID(ctx, id)
}

// List 分页查询生产订单
func (s *ProductionService) List(ctx context.Context, productID, origin, status string, page, pageSize int) ([]entity.ProductionOrder, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.productionRepo.List(ctx, productID, origin, status, page, pageSize)
}

// Confirm 确认生产订单并按BOM工艺路线生成工序
func (s *ProductionService) Confirm(ctx context.Context, id string) (*entity.ProductionOrder, error) {
	order, err := s.productionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("生产订单不存在: %w", err)
	}
	if order.Status != entity.OrderStatusDraft {
		return nil, fmt.Errorf("订单状态不允许确认: %s", order.Status)
	}

	order.Status = entity.OrderStatusConfirmed
	if err := s.productionRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("确认订单失败: %w", err)
	}

	if len(order.Operations) == 0 {
		if err := s.GenerateOperations(ctx, order); err != nil {
			return nil, err
		}
	}
	return s.productionRepo.GetByID(ctx, id)
}

// GenerateOperations 按BOM工艺路线为订单生成工序。
// 订单未挂BOM时回退到产品最新已发布BOM；首道工序置 ready，其余 pending。
func (s *ProductionService) GenerateOperations(ctx context.Context, order *entity.ProductionOrder) error {
	var routing []entity.RoutingOperation
	var err error

	if order.BOMID != nil {
		routing, err = s.bomRepo.GetRouting(ctx, *order.BOMID)
		if err != nil {
			return fmt.Errorf("读取工艺路线失败: %w", err)
		}
	} else {
		bom, err := s.bomRepo.GetReleasedByProductID(ctx, order.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("读取产品BOM失败: %w", err)
		}
		routing = bom.Routing
	}
	if len(routing) == 0 {
		return nil
	}

	ops := make([]entity.ProductionOperation, 0, len(routing))
	for i, r := range routing {
		status := entity.OpStatusPending
		if i == 0 {
			status = entity.OpStatusReady
		}
		ops = append(ops, entity.ProductionOperation{
			ID:               uuid.New().String(),
			OrderID:          order.ID,
			Sequence:         (i + 1) * 10,
			Name:             r.Name,
			WorkCenterID:     r.WorkCenterID,
			Status:           status,
			DurationExpected: r.DurationMinutes,
			QtyToProduce:     order.Quantity,
		})
	}
	if err := s.productionRepo.CreateOperations(ctx, ops); err != nil {
		return fmt.Errorf("生成工序失败: %w", err)
	}
	return nil
}

// StartOperation 开工工序，订单随之进入 in_progress
func (s *ProductionService) StartOperation(ctx context.Context, orderID, opID string) error {
	order, err := s.productionRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("生产订单不存在: %w", err)
	}

	var target *entity.ProductionOperation
	for i := range order.Operations {
		if order.Operations[i].ID == opID {
			target = &order.Operations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("工序不存在: %s", opID)
	}
	if target.Status != entity.OpStatusReady {
		return fmt.Errorf("工序状态不允许开工: %s", target.Status)
	}

	now := time.Now()
	target.Status = entity.OpStatusProgress
	target.StartedAt = &now
	if err := s.productionRepo.UpdateOperation(ctx, target); err != nil {
		return fmt.Errorf("开工失败: %w", err)
	}

	if order.Status == entity.OrderStatusConfirmed {
		return s.productionRepo.UpdateStatus(ctx, order.ID, entity.OrderStatusInProgress)
	}
	return nil
}

// CompleteOperation 完工工序并将下一道 pending 工序置为 ready；
// 全部工序完成后订单置为 done
func (s *ProductionService) CompleteOperation(ctx context.Context, orderID, opID string, qtyProduced, durationReal float64) error {
	order, err := s.productionRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("生产订单不存在: %w", err)
	}

	var target *entity.ProductionOperation
	for i := range order.Operations {
		if order.Operations[i].ID == opID {
			target = &order.Operations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("工序不存在: %s", opID)
	}
	if target.Status != entity.OpStatusProgress && target.Status != entity.OpStatusReady {
		return fmt.Errorf("工序状态不允许完工: %s", target.Status)
	}

	now := time.Now()
	target.Status = entity.OpStatusDone
	target.QtyProduced = qtyProduced
	target.DurationReal = durationReal
	target.FinishedAt = &now
	if err := s.productionRepo.UpdateOperation(ctx, target); err != nil {
		return fmt.Errorf("完工失败: %w", err)
	}

	allDone := true
	for i := range order.Operations {
		op := &order.Operations[i]
		if op.ID == opID {
			continue
		}
		if !op.IsCompleted() {
			allDone = false
			if op.Status == entity.OpStatusPending {
				op.Status = entity.OpStatusReady
				if err := s.productionRepo.UpdateOperation(ctx, op); err != nil {
					return fmt.Errorf("流转下道工序失败: %w", err)
				}
			}
			break
		}
	}

	if allDone {
		return s.productionRepo.UpdateStatus(ctx, order.ID, entity.OrderStatusDone)
	}
	return nil
}

// Cancel 取消生产订单
func (s *ProductionService) Cancel(ctx context.Context, id string) (*entity.ProductionOrder, error) {
	order, err := s.productionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("生产订单不存在: %w", err)
	}
	if order.Status == entity.OrderStatusDone || order.Status == entity.OrderStatusCancelled {
		return nil, fmt.Errorf("订单状态不允许取消: %s", order.Status)
	}
	order.Status = entity.OrderStatusCancelled
	if err := s.productionRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("取消订单失败: %w", err)
	}
	return order, nil
}
