package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExecutionService 工单执行跟踪服务。
// load 时从最新已下单计划的订单台账整表重建执行行与工序行，
// 用户录入的 actual_duration/workers_assigned/machines_assigned
// 按 (生产订单, 工序) 身份跨重载保留。
type ExecutionService struct {
	executionRepo  *repository.ExecutionRepository
	planningRepo   *repository.PlanningRepository
	productionRepo *repository.ProductionRepository
	pricingRepo    *repository.PricingRepository
	projectRepo    *repository.ProjectRepository
	productRepo    *repository.ProductRepository
	productionSvc  *ProductionService
	reports        *ReportService
	codes          *CodeGenerator
	db             *gorm.DB
	logger         *zap.Logger
}

// NewExecutionService 创建执行跟踪服务
func NewExecutionService(
	executionRepo *repository.ExecutionRepository,
	planningRepo *repository.PlanningRepository,
	productionRepo *repository.ProductionRepository,
	pricingRepo *repository.PricingRepository,
	projectRepo *repository.ProjectRepository,
	productRepo *repository.ProductRepository,
	productionSvc *ProductionService,
	reports *ReportService,
	codes *CodeGenerator,
	db *gorm.DB,
	logger *zap.Logger,
) *ExecutionService {
	return &ExecutionService{
		executionRepo:  executionRepo,
		planningRepo:   planningRepo,
		productionRepo: productionRepo,
		pricingRepo:    pricingRepo,
		projectRepo:    projectRepo,
		productRepo:    productRepo,
		productionSvc:  productionSvc,
		reports:        reports,
		codes:          codes,
		db:             db,
		logger:         logger,
	}
}

// CreateRunRequest 创建执行跟踪请求
type CreateRunRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Notes     string `json:"notes"`
}

// Create 创建执行跟踪
func (s *ExecutionService) Create(ctx context.Context, req CreateRunRequest, userID string) (*entity.ExecutionRun, error) {
	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID); err != nil {
		return nil, fmt.Errorf("项目不存在: %w", err)
	}

	code, err := s.codes.Next(ctx, "EX")
	if err != nil {
		return nil, err
	}
	run := &entity.ExecutionRun{
		ID:        uuid.New().String(),
		Code:      code,
		ProjectID: req.ProjectID,
		ProductID: req.ProductID,
		Status:    entity.RunStatusDraft,
		Notes:     req.Notes,
		CreatedBy: userID,
	}
	if err := s.executionRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("创建执行跟踪失败: %w", err)
	}
	return run, nil
}

// opKey 工序行跨重载的身份
type opKey struct {
	orderID     string
	operationID string
}

// preservedFields 重载时保留的用户录入字段
type preservedFields struct {
	actualDuration   float64
	workersAssigned  int
	machinesAssigned int
}

// Load 从最新已下单计划重建执行行与工序行。
// 台账中的草稿订单先确认并生成工序；确认失败仅告警，不中断加载。
func (s *ExecutionService) Load(ctx context.Context, runID string) (*RunDetail, error) {
	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}
	if run.Status == entity.RunStatusDone || run.Status == entity.RunStatusCancelled {
		return nil, fmt.Errorf("执行跟踪已结束: %s", run.Status)
	}

	latest, err := s.planningRepo.GetLatestForProduct(ctx, run.ProjectID, run.ProductID,
		[]string{entity.PlanStatusWorkOrdersCreated, entity.PlanStatusDone})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// 区分"没有计划"与"计划尚未下单"
		any, anyErr := s.planningRepo.GetLatestForProduct(ctx, run.ProjectID, run.ProductID, nil)
		if anyErr != nil {
			if errors.Is(anyErr, repository.ErrNotFound) {
				return nil, ErrPlanNotFound
			}
			return nil, anyErr
		}
		return nil, &PlanNotReadyError{PlanID: any.ID, Status: any.Status, Needed: "work_orders_created/done"}
	}
	plan, err := s.planningRepo.GetByID(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	if len(plan.ProductionOrders) == 0 {
		return nil, ErrNoProductionOrders
	}

	// 保留已录入的用户字段
	oldLines, err := s.executionRepo.GetOperationLines(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	preserved := make(map[opKey]preservedFields, len(oldLines))
	for _, ol := range oldLines {
		preserved[opKey{ol.ProductionOrderID, ol.OperationID}] = preservedFields{
			actualDuration:   ol.ActualDuration,
			workersAssigned:  ol.WorkersAssigned,
			machinesAssigned: ol.MachinesAssigned,
		}
	}

	// 附加代码与规格取自最新可用定价版本，缺失时留空
	codeByComponent := make(map[string]string)
	specsByComponent := make(map[string]entity.SpecList)
	if pricing, err := s.pricingRepo.GetLatestUsable(ctx, run.ProjectID, run.ProductID); err == nil {
		for _, comp := range pricing.Components {
			codeByComponent[comp.ComponentID] = comp.AdditionalCode
			specsByComponent[comp.ComponentID] = entity.SpecSnapshot(comp.Specifications)
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("查询定价版本失败: %w", err)
	}

	// 草稿订单先确认；已确认但还没有工序的订单补生成。失败仅告警，不中断加载
	for _, po := range plan.ProductionOrders {
		order, err := s.productionRepo.GetByID(ctx, po.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case order.Status == entity.OrderStatusDraft:
			if _, err := s.productionSvc.Confirm(ctx, order.ID); err != nil {
				s.logger.Warn("确认生产订单失败，跳过",
					zap.String("order_id", order.ID),
					zap.String("order_code", order.Code),
					zap.Error(err))
			}
		case len(order.Operations) == 0 &&
			order.Status != entity.OrderStatusDone &&
			order.Status != entity.OrderStatusCancelled:
			if err := s.productionSvc.GenerateOperations(ctx, order); err != nil {
				s.logger.Warn("补生成工序失败，跳过",
					zap.String("order_id", order.ID),
					zap.String("order_code", order.Code),
					zap.Error(err))
			}
		}
	}

	productIDs := make([]string, 0, len(plan.ProductionOrders))
	for _, po := range plan.ProductionOrders {
		productIDs = append(productIDs, po.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("读取产品失败: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.executionRepo.DeleteLines(tx, run.ID); err != nil {
			return err
		}

		for i, po := range plan.ProductionOrders {
			order, err := s.productionRepo.GetByID(ctx, po.ID)
			if err != nil {
				return err
			}

			line := &entity.ExecutionLine{
				ID:                uuid.New().String(),
				RunID:             run.ID,
				Sequence:          (i + 1) * 10,
				ComponentID:       order.ProductID,
				ProductionOrderID: order.ID,
				Quantity:          order.Quantity,
				AdditionalCode:    codeByComponent[order.ProductID],
			}
			if p, ok := products[order.ProductID]; ok {
				line.Weight = p.UnitWeight * order.Quantity
			}

			for _, op := range order.Operations {
				name := op.Name
				if name == "" {
					name = fmt.Sprintf("Operation %s", op.ID)
				}
				opLine := entity.OperationLine{
					ID:                uuid.New().String(),
					LineID:            line.ID,
					RunID:             run.ID,
					ProductionOrderID: order.ID,
					OperationID:       op.ID,
					Sequence:          op.Sequence,
					Name:              name,
					WorkCenterID:      op.WorkCenterID,
					Status:            op.Status,
					DurationExpected:  op.DurationExpected,
					DurationReal:      op.DurationReal,
					QtyToProduce:      op.QtyToProduce,
					QtyProduced:       op.QtyProduced,
					AdditionalCode:    codeByComponent[order.ProductID],
					Specifications:    specsByComponent[order.ProductID],
					StartedAt:         op.StartedAt,
					FinishedAt:        op.FinishedAt,
				}
				if p, ok := preserved[opKey{order.ID, op.ID}]; ok {
					opLine.ActualDuration = p.actualDuration
					opLine.WorkersAssigned = p.workersAssigned
					opLine.MachinesAssigned = p.machinesAssigned
				}
				line.OperationLines = append(line.OperationLines, opLine)
			}

			if err := s.executionRepo.CreateLineInTx(tx, line); err != nil {
				return err
			}
		}

		return tx.Model(&entity.ExecutionRun{}).
			Where("id = ?", run.ID).
			Update("status", entity.RunStatusLoaded).Error
	})
	if err != nil {
		return nil, fmt.Errorf("加载执行行失败: %w", err)
	}

	s.logger.Info("执行跟踪加载完成",
		zap.String("run_id", run.ID),
		zap.String("plan_id", plan.ID),
		zap.Int("orders", len(plan.ProductionOrders)))
	if s.reports != nil {
		s.reports.InvalidateRun(ctx, run.ID)
	}
	return s.GetDetail(ctx, runID)
}

// LineDetail 执行行详情（含派生进度与当前工序）
type LineDetail struct {
	entity.ExecutionLine
	Progress         float64 `json:"progress"`
	CurrentOperation string  `json:"current_operation"`
}

// RunDetail 执行跟踪详情
type RunDetail struct {
	*entity.ExecutionRun
	LineDetails []LineDetail `json:"line_details"`
	Progress    float64      `json:"progress"`
}

// GetDetail 获取执行跟踪详情，进度与当前工序读取时派生
func (s *ExecutionService) GetDetail(ctx context.Context, runID string) (*RunDetail, error) {
	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}

	detail := &RunDetail{ExecutionRun: run}
	totalOps, doneOps := 0, 0
	for _, line := range run.Lines {
		detail.LineDetails = append(detail.LineDetails, LineDetail{
			ExecutionLine:    line,
			Progress:         entity.LineProgress(line.OperationLines),
			CurrentOperation: entity.CurrentOperation(line.OperationLines),
		})
		for _, op := range line.OperationLines {
			totalOps++
			if op.Status == entity.OpStatusDone {
				doneOps++
			}
		}
	}
	if totalOps > 0 {
		detail.Progress = float64(doneOps) / float64(totalOps) * 100
	}
	return detail, nil
}

// List 分页查询执行跟踪
func (s *ExecutionService) List(ctx context.Context, projectID, status string, page, pageSize int) ([]entity.ExecutionRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.executionRepo.List(ctx, projectID, status, page, pageSize)
}

// Start 开始执行
func (s *ExecutionService) Start(ctx context.Context, runID string) (*entity.ExecutionRun, error) {
	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}
	if run.Status != entity.RunStatusLoaded {
		return nil, fmt.Errorf("执行状态不允许开始: %s", run.Status)
	}
	run.Status = entity.RunStatusInProgress
	if err := s.executionRepo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("开始执行失败: %w", err)
	}
	return run, nil
}

// Done 完成执行，要求全部工序行结束
func (s *ExecutionService) Done(ctx context.Context, runID string) (*entity.ExecutionRun, error) {
	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}
	if run.Status != entity.RunStatusInProgress && run.Status != entity.RunStatusLoaded {
		return nil, fmt.Errorf("执行状态不允许完成: %s", run.Status)
	}
	for _, line := range run.Lines {
		for _, op := range line.OperationLines {
			if !op.IsCompleted() {
				return nil, fmt.Errorf("工序 %s 尚未结束，不能完成执行", op.Name)
			}
		}
	}
	run.Status = entity.RunStatusDone
	if err := s.executionRepo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("完成执行失败: %w", err)
	}
	return run, nil
}

// Cancel 取消执行
func (s *ExecutionService) Cancel(ctx context.Context, runID string) (*entity.ExecutionRun, error) {
	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}
	if run.Status == entity.RunStatusDone || run.Status == entity.RunStatusCancelled {
		return nil, fmt.Errorf("执行状态不允许取消: %s", run.Status)
	}
	run.Status = entity.RunStatusCancelled
	if err := s.executionRepo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("取消执行失败: %w", err)
	}
	return run, nil
}

// UpdateOperationLineRequest 工序行用户字段更新请求
type UpdateOperationLineRequest struct {
	ActualDuration   *float64 `json:"actual_duration"`
	WorkersAssigned  *int     `json:"workers_assigned"`
	MachinesAssigned *int     `json:"machines_assigned"`
}

// UpdateOperationLine 更新工序行的用户录入字段
func (s *ExecutionService) UpdateOperationLine(ctx context.Context, lineID string, req UpdateOperationLineRequest) (*entity.OperationLine, error) {
	line, err := s.executionRepo.GetOperationLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("工序行不存在: %w", err)
	}
	if req.ActualDuration != nil {
		line.ActualDuration = *req.ActualDuration
	}
	if req.WorkersAssigned != nil {
		line.WorkersAssigned = *req.WorkersAssigned
	}
	if req.MachinesAssigned != nil {
		line.MachinesAssigned = *req.MachinesAssigned
	}
	if err := s.executionRepo.UpdateOperationLine(ctx, line); err != nil {
		return nil, fmt.Errorf("更新工序行失败: %w", err)
	}
	return line, nil
}

// AssignResourcesRequest 批量排班请求
type AssignResourcesRequest struct {
	OperationName    string `json:"operation_name" binding:"required"`
	WorkersAssigned  int    `json:"workers_assigned"`
	MachinesAssigned int    `json:"machines_assigned"`
}

// AssignResources 将人力/设备排班应用到执行中所有同名工序行
func (s *ExecutionService) AssignResources(ctx context.Context, runID string, req AssignResourcesRequest) (int, error) {
	lines, err := s.executionRepo.GetOperationLines(ctx, runID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range lines {
		if lines[i].Name != req.OperationName {
			continue
		}
		lines[i].WorkersAssigned = req.WorkersAssigned
		lines[i].MachinesAssigned = req.MachinesAssigned
		if err := s.executionRepo.UpdateOperationLine(ctx, &lines[i]); err != nil {
			return updated, fmt.Errorf("更新工序行失败: %w", err)
		}
		updated++
	}
	if updated == 0 {
		return 0, fmt.Errorf("没有名为 %s 的工序行", req.OperationName)
	}
	return updated, nil
}

// StartOperationLine 开工工序行，同步底层生产工序
func (s *ExecutionService) StartOperationLine(ctx context.Context, lineID string) (*entity.OperationLine, error) {
	line, err := s.executionRepo.GetOperationLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("工序行不存在: %w", err)
	}
	if line.Status != entity.OpStatusReady {
		return nil, fmt.Errorf("工序行状态不允许开工: %s", line.Status)
	}

	if err := s.productionSvc.StartOperation(ctx, line.ProductionOrderID, line.OperationID); err != nil {
		return nil, err
	}

	now := time.Now()
	line.Status = entity.OpStatusProgress
	line.StartedAt = &now
	if err := s.executionRepo.UpdateOperationLine(ctx, line); err != nil {
		return nil, fmt.Errorf("更新工序行失败: %w", err)
	}
	return line, nil
}

// CompleteOperationLineRequest 工序行完工请求
type CompleteOperationLineRequest struct {
	QtyProduced  float64 `json:"qty_produced"`
	DurationReal float64 `json:"duration_real"`
}

// CompleteOperationLine 完工工序行，同步底层生产工序并流转同行下道工序
func (s *ExecutionService) CompleteOperationLine(ctx context.Context, lineID string, req CompleteOperationLineRequest) (*entity.OperationLine, error) {
	line, err := s.executionRepo.GetOperationLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("工序行不存在: %w", err)
	}
	if line.Status != entity.OpStatusProgress && line.Status != entity.OpStatusReady {
		return nil, fmt.Errorf("工序行状态不允许完工: %s", line.Status)
	}

	if err := s.productionSvc.CompleteOperation(ctx, line.ProductionOrderID, line.OperationID, req.QtyProduced, req.DurationReal); err != nil {
		return nil, err
	}

	now := time.Now()
	line.Status = entity.OpStatusDone
	line.QtyProduced = req.QtyProduced
	line.DurationReal = req.DurationReal
	line.FinishedAt = &now
	if err := s.executionRepo.UpdateOperationLine(ctx, line); err != nil {
		return nil, fmt.Errorf("更新工序行失败: %w", err)
	}

	// 同一执行行的下道 pending 工序置为 ready
	var sibling entity.OperationLine
	err = s.executionRepo.DB().WithContext(ctx).
		Where("line_id = ? AND status = ? AND sequence > ?", line.LineID, entity.OpStatusPending, line.Sequence).
		Order("sequence ASC").
		First(&sibling).Error
	if err == nil {
		sibling.Status = entity.OpStatusReady
		if err := s.executionRepo.UpdateOperationLine(ctx, &sibling); err != nil {
			return nil, fmt.Errorf("流转下道工序失败: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if s.reports != nil {
		s.reports.InvalidateRun(ctx, line.RunID)
	}
	return line, nil
}
