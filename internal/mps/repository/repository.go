package repository

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// generateID 生成32位ID
func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
}

// Repositories MPS 仓库集合
type Repositories struct {
	Product     *ProductRepository
	BOM         *BOMRepository
	Stock       *StockRepository
	Project     *ProjectRepository
	Pricing     *PricingRepository
	Planning    *PlanningRepository
	Production  *ProductionRepository
	Execution   *ExecutionRepository
	Requisition *RequisitionRepository
	Sequence    *SequenceRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:     NewProductRepository(db),
		BOM:         NewBOMRepository(db),
		Stock:       NewStockRepository(db),
		Project:     NewProjectRepository(db),
		Pricing:     NewPricingRepository(db),
		Planning:    NewPlanningRepository(db),
		Production:  NewProductionRepository(db),
		Execution:   NewExecutionRepository(db),
		Requisition: NewRequisitionRepository(db),
		Sequence:    NewSequenceRepository(db),
	}
}
