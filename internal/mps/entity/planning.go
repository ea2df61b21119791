package entity

import (
	"time"
)

// PlanStatus 物料计划状态机：draft → components_loaded → material_planned → work_orders_created → done，
// cancelled 可从任意非终态进入。done/cancelled 为终态。
const (
	PlanStatusDraft             = "draft"
	PlanStatusComponentsLoaded  = "components_loaded"
	PlanStatusMaterialPlanned   = "material_planned"
	PlanStatusWorkOrdersCreated = "work_orders_created"
	PlanStatusDone              = "done"
	PlanStatusCancelled         = "cancelled"
)

// MaterialPlan 物料与生产计划（每次 项目+产品 的一次计划尝试）
type MaterialPlan struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Code      string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProjectID string     `json:"project_id" gorm:"size:36;not null;index"`
	ProductID string     `json:"product_id" gorm:"size:36;not null;index"`
	PricingID *string    `json:"pricing_id" gorm:"size:36"`
	Quantity  float64    `json:"quantity" gorm:"type:decimal(12,4);default:0"`
	Weight    float64    `json:"weight" gorm:"type:decimal(12,4);default:0"`
	Status    string     `json:"status" gorm:"size:30;not null;default:draft"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Components   []PlanningComponent       `json:"components,omitempty" gorm:"foreignKey:PlanID"`
	Requirements []MaterialRequirementLine `json:"requirements,omitempty" gorm:"foreignKey:PlanID"`

	// ProductionOrders 生产订单台账：只追加，从不清空，用来按历史累计产量推算剩余量
	ProductionOrders []ProductionOrder `json:"production_orders,omitempty" gorm:"many2many:mps_plan_production_orders;"`
}

func (MaterialPlan) TableName() string {
	return "mps_material_plans"
}

// ProducedQty 台账中主产品订单的数量合计（读取时派生）
func (p *MaterialPlan) ProducedQty() float64 {
	var total float64
	for _, po := range p.ProductionOrders {
		if po.ProductID == p.ProductID {
			total += po.Quantity
		}
	}
	return total
}

// RemainingQty 剩余可生产量 = max(0, 计划量 − 已建订单量)
func (p *MaterialPlan) RemainingQty() float64 {
	remaining := p.Quantity - p.ProducedQty()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsTerminal 是否终态
func (p *MaterialPlan) IsTerminal() bool {
	return p.Status == PlanStatusDone || p.Status == PlanStatusCancelled
}

// PlanningComponent 计划部件行（从定价版本冻结复制，定价后续修改不回溯影响计划）
type PlanningComponent struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	PlanID         string    `json:"plan_id" gorm:"size:36;not null;index"`
	Sequence       int       `json:"sequence" gorm:"default:10"`
	ComponentID    string    `json:"component_id" gorm:"size:36;not null;index"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Weight         float64   `json:"weight" gorm:"type:decimal(12,4);default:0"`
	CostPrice      float64   `json:"cost_price" gorm:"type:decimal(12,4);default:0"`
	BOMID          *string   `json:"bom_id" gorm:"size:36"`
	AdditionalCode string    `json:"additional_code" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Component      *Product             `json:"component,omitempty" gorm:"foreignKey:ComponentID"`
	Specifications []SpecificationValue `json:"specifications,omitempty" gorm:"foreignKey:PlanningComponentID"`
}

func (PlanningComponent) TableName() string {
	return "mps_planning_components"
}

// RequirementStatus 物料需求行状态
const (
	RequirementStatusSufficient = "sufficient"
	RequirementStatusPartial    = "partial"
	RequirementStatusShortage   = "shortage"
	RequirementStatusOrdered    = "ordered"
	RequirementStatusReceived   = "received"
)

// MaterialRequirementLine 物料需求行（每次计算整表替换，从不增量修补）
type MaterialRequirementLine struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	PlanID       string    `json:"plan_id" gorm:"size:36;not null;index"`
	ComponentID  string    `json:"component_id" gorm:"size:36;not null"`
	MaterialID   string    `json:"material_id" gorm:"size:36;not null;index"`
	RequiredQty  float64   `json:"required_qty" gorm:"type:decimal(12,4);not null"`
	AvailableQty float64   `json:"available_qty" gorm:"type:decimal(12,4)"`
	ShortageQty  float64   `json:"shortage_qty" gorm:"type:decimal(12,4)"`
	Status       string    `json:"status" gorm:"size:20;not null;default:sufficient"`
	CreatedAt    time.Time `json:"created_at"`
}

func (MaterialRequirementLine) TableName() string {
	return "mps_material_requirement_lines"
}
