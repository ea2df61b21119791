package entity

import (
	"sort"
	"strings"
	"time"
)

// PricingStatus 定价版本状态
const (
	PricingStatusDraft     = "draft"
	PricingStatusConfirmed = "confirmed"
	PricingStatusApproved  = "approved"
	PricingStatusCancelled = "cancelled"
)

// Pricing 产品定价版本（按 项目+产品 的带版本号快照，只追加不改写）
type Pricing struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Code        string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProjectID   string     `json:"project_id" gorm:"size:36;not null;index"`
	ProductID   string     `json:"product_id" gorm:"size:36;not null;index"`
	Version     int        `json:"version" gorm:"not null;default:1"`
	PricingDate time.Time  `json:"pricing_date"`
	Quantity    float64    `json:"quantity" gorm:"type:decimal(12,4);default:0"`
	Weight      float64    `json:"weight" gorm:"type:decimal(12,4);default:0"`
	Status      string     `json:"status" gorm:"size:20;not null;default:draft"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Components []PricingComponent `json:"components,omitempty" gorm:"foreignKey:PricingID"`
}

func (Pricing) TableName() string {
	return "mps_pricings"
}

// TotalComponentCost 部件成本合计（派生，不落库）
func (p *Pricing) TotalComponentCost() float64 {
	var total float64
	for _, c := range p.Components {
		total += c.Quantity * c.CostPrice
	}
	return total
}

// PricingComponent 定价部件行
type PricingComponent struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	PricingID      string    `json:"pricing_id" gorm:"size:36;not null;index"`
	Sequence       int       `json:"sequence" gorm:"default:10"`
	ComponentID    string    `json:"component_id" gorm:"size:36;not null;index"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null;default:1"`
	Weight         float64   `json:"weight" gorm:"type:decimal(12,4);default:0"`
	CostPrice      float64   `json:"cost_price" gorm:"type:decimal(12,4);default:0"`
	BOMID          *string   `json:"bom_id" gorm:"size:36"`
	AdditionalCode string    `json:"additional_code" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Component      *Product             `json:"component,omitempty" gorm:"foreignKey:ComponentID"`
	Specifications []SpecificationValue `json:"specifications,omitempty" gorm:"foreignKey:PricingComponentID"`
}

func (PricingComponent) TableName() string {
	return "mps_pricing_components"
}

// AdditionalCodeFromSpecs 由规格行派生附加代码文本，按sequence排序，每行 "名称: 取值"。
// 规格变更后显式重算，不做隐式联动。
func AdditionalCodeFromSpecs(specs []SpecificationValue) string {
	sorted := make([]SpecificationValue, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	var lines []string
	for _, s := range sorted {
		if s.Value == "" {
			continue
		}
		lines = append(lines, s.SpecificationName+": "+s.Value)
	}
	return strings.Join(lines, "\n")
}

// SpecSnapshot 将规格行转为工序快照条目
func SpecSnapshot(specs []SpecificationValue) SpecList {
	sorted := make([]SpecificationValue, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	var out SpecList
	for _, s := range sorted {
		out = append(out, SpecItem{
			Name:     s.SpecificationName,
			Value:    s.Value,
			Sequence: s.Sequence,
			Notes:    s.Notes,
		})
	}
	return out
}
