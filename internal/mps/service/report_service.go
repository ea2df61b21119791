package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reportCacheTTL = 5 * time.Minute

// ReportService 报表服务。rdb 为 nil 时直接计算不走缓存。
type ReportService struct {
	planningRepo  *repository.PlanningRepository
	executionRepo *repository.ExecutionRepository
	productRepo   *repository.ProductRepository
	rdb           *redis.Client
	logger        *zap.Logger
}

// NewReportService 创建报表服务
func NewReportService(
	planningRepo *repository.PlanningRepository,
	executionRepo *repository.ExecutionRepository,
	productRepo *repository.ProductRepository,
	rdb *redis.Client,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		planningRepo:  planningRepo,
		executionRepo: executionRepo,
		productRepo:   productRepo,
		rdb:           rdb,
		logger:        logger,
	}
}

// MaterialUsageRow 物料需求报表行
type MaterialUsageRow struct {
	MaterialID   string  `json:"material_id"`
	MaterialCode string  `json:"material_code"`
	MaterialName string  `json:"material_name"`
	RequiredQty  float64 `json:"required_qty"`
	AvailableQty float64 `json:"available_qty"`
	ShortageQty  float64 `json:"shortage_qty"`
	Status       string  `json:"status"`
}

// MaterialUsageReport 物料需求报表
type MaterialUsageReport struct {
	PlanID      string             `json:"plan_id"`
	PlanCode    string             `json:"plan_code"`
	Rows        []MaterialUsageRow `json:"rows"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// MaterialUsage 生成计划的物料需求报表，按物料归并
func (s *ReportService) MaterialUsage(ctx context.Context, planID string) (*MaterialUsageReport, error) {
	cacheKey := "mps:report:usage:" + planID
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		var report MaterialUsageReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}
	}

	plan, err := s.planningRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, ErrPlanNotFound
	}

	type agg struct {
		required  float64
		available float64
		shortage  float64
		status    string
	}
	byMaterial := make(map[string]*agg)
	var order []string
	for _, line := range plan.Requirements {
		a, ok := byMaterial[line.MaterialID]
		if !ok {
			a = &agg{available: line.AvailableQty, status: line.Status}
			byMaterial[line.MaterialID] = a
			order = append(order, line.MaterialID)
		}
		a.required += line.RequiredQty
		a.shortage += line.ShortageQty
		if line.Status == entity.RequirementStatusShortage {
			a.status = entity.RequirementStatusShortage
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("读取物料失败: %w", err)
	}

	report := &MaterialUsageReport{
		PlanID:      plan.ID,
		PlanCode:    plan.Code,
		GeneratedAt: time.Now(),
	}
	for _, materialID := range order {
		a := byMaterial[materialID]
		row := MaterialUsageRow{
			MaterialID:   materialID,
			RequiredQty:  a.required,
			AvailableQty: a.available,
			ShortageQty:  a.shortage,
			Status:       a.status,
		}
		if p, ok := products[materialID]; ok {
			row.MaterialCode = p.Code
			row.MaterialName = p.Name
		}
		report.Rows = append(report.Rows, row)
	}

	s.toCache(ctx, cacheKey, report)
	return report, nil
}

// ProgressRow 执行进度报表行
type ProgressRow struct {
	ProductionOrderID string  `json:"production_order_id"`
	ComponentID       string  `json:"component_id"`
	ComponentCode     string  `json:"component_code"`
	ComponentName     string  `json:"component_name"`
	Quantity          float64 `json:"quantity"`
	Status            string  `json:"status"`
	Progress          float64 `json:"progress"`
	CurrentOperation  string  `json:"current_operation"`
}

// ProgressReport 执行进度报表
type ProgressReport struct {
	RunID       string        `json:"run_id"`
	RunCode     string        `json:"run_code"`
	Rows        []ProgressRow `json:"rows"`
	Progress    float64       `json:"progress"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Progress 生成执行跟踪的进度报表
func (s *ReportService) Progress(ctx context.Context, runID string) (*ProgressReport, error) {
	cacheKey := "mps:report:progress:" + runID
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		var report ProgressReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}
	}

	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}

	componentIDs := make([]string, 0, len(run.Lines))
	for _, line := range run.Lines {
		componentIDs = append(componentIDs, line.ComponentID)
	}
	products, err := s.productRepo.GetByIDs(ctx, componentIDs)
	if err != nil {
		return nil, fmt.Errorf("读取部件失败: %w", err)
	}

	report := &ProgressReport{
		RunID:       run.ID,
		RunCode:     run.Code,
		GeneratedAt: time.Now(),
	}
	totalOps, doneOps := 0, 0
	for _, line := range run.Lines {
		row := ProgressRow{
			ProductionOrderID: line.ProductionOrderID,
			ComponentID:       line.ComponentID,
			Quantity:          line.Quantity,
			Status:            entity.LineStatus(line.OperationLines),
			Progress:          entity.LineProgress(line.OperationLines),
			CurrentOperation:  entity.CurrentOperation(line.OperationLines),
		}
		if p, ok := products[line.ComponentID]; ok {
			row.ComponentCode = p.Code
			row.ComponentName = p.Name
		}
		report.Rows = append(report.Rows, row)

		for _, op := range line.OperationLines {
			totalOps++
			if op.Status == entity.OpStatusDone {
				doneOps++
			}
		}
	}
	if totalOps > 0 {
		report.Progress = float64(doneOps) / float64(totalOps) * 100
	}

	s.toCache(ctx, cacheKey, report)
	return report, nil
}

// InvalidatePlan 作废计划相关报表缓存
func (s *ReportService) InvalidatePlan(ctx context.Context, planID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, "mps:report:usage:"+planID).Err(); err != nil {
		s.logger.Warn("删除报表缓存失败", zap.String("plan_id", planID), zap.Error(err))
	}
}

// InvalidateRun 作废执行相关报表缓存
func (s *ReportService) InvalidateRun(ctx context.Context, runID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, "mps:report:progress:"+runID).Err(); err != nil {
		s.logger.Warn("删除报表缓存失败", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *ReportService) fromCache(ctx context.Context, key string) ([]byte, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("读取报表缓存失败", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (s *ReportService) toCache(ctx context.Context, key string, v interface{}) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, reportCacheTTL).Err(); err != nil {
		s.logger.Warn("写入报表缓存失败", zap.String("key", key), zap.Error(err))
	}
}
