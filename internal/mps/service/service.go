package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services MPS 服务集合
type Services struct {
	Project     *ProjectService
	Pricing     *PricingService
	Planning    *PlanningService
	Allocation  *AllocationService
	Production  *ProductionService
	Execution   *ExecutionService
	Requisition *RequisitionService
	Report      *ReportService
}

// NewServices 创建服务集合。rdb 可为 nil，此时报表不走缓存。
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Services {
	codes := NewCodeGenerator(repos.Sequence)
	production := NewProductionService(repos.Production, repos.Product, repos.BOM, codes)
	reports := NewReportService(repos.Planning, repos.Execution, repos.Product, rdb, logger)
	return &Services{
		Project:     NewProjectService(repos.Project, repos.Product, codes),
		Pricing:     NewPricingService(repos.Pricing, repos.Project, repos.Product, repos.BOM, codes),
		Planning:    NewPlanningService(repos.Planning, repos.Pricing, repos.Project, repos.BOM, repos.Stock, reports, codes),
		Allocation:  NewAllocationService(repos.Planning, repos.Production, codes, db, logger),
		Production:  production,
		Execution:   NewExecutionService(repos.Execution, repos.Planning, repos.Production, repos.Pricing, repos.Project, repos.Product, production, reports, codes, db, logger),
		Requisition: NewRequisitionService(repos.Requisition, repos.Planning, repos.Product, repos.Stock, codes),
		Report:      reports,
	}
}

// CodeGenerator 业务单号生成器：<前缀>-<日期><4位序号>，序号走库内按前缀独立的计数器
type CodeGenerator struct {
	seqRepo *repository.SequenceRepository
}

// NewCodeGenerator 创建单号生成器
func NewCodeGenerator(seqRepo *repository.SequenceRepository) *CodeGenerator {
	return &CodeGenerator{seqRepo: seqRepo}
}

// Next 生成下一个业务单号，如 MP-202608280001
func (g *CodeGenerator) Next(ctx context.Context, prefix string) (string, error) {
	seq, err := g.seqRepo.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("生成单号失败: %w", err)
	}
	return formatCode(prefix, seq), nil
}

// NextInTx 在既有事务内生成单号，供下单等长事务复用
func (g *CodeGenerator) NextInTx(tx *gorm.DB, prefix string) (string, error) {
	seq, err := g.seqRepo.NextInTx(tx, prefix)
	if err != nil {
		return "", fmt.Errorf("生成单号失败: %w", err)
	}
	return formatCode(prefix, seq), nil
}

func formatCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%s%04d", prefix, time.Now().Format("20060102"), seq)
}
