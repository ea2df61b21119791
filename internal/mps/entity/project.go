package entity

import (
	"time"
)

// ProjectStatus 项目状态
const (
	ProjectStatusDraft      = "draft"
	ProjectStatusConfirmed  = "confirmed"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusDone       = "done"
	ProjectStatusCancelled  = "cancelled"
)

// Project 项目定义（含成品产品清单）
type Project struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Code         string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:128;not null"`
	CustomerName string     `json:"customer_name" gorm:"size:128"`
	StartDate    time.Time  `json:"start_date" gorm:"not null"`
	EndDate      time.Time  `json:"end_date" gorm:"not null"`
	Status       string     `json:"status" gorm:"size:20;not null;default:draft"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	ProductLines []ProjectProductLine `json:"product_lines,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "mps_projects"
}

// ProjectProductLine 项目成品行（计划数量/重量/成本/售价）
type ProjectProductLine struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID string    `json:"project_id" gorm:"size:36;not null;index"`
	Sequence  int       `json:"sequence" gorm:"default:10"`
	ProductID string    `json:"product_id" gorm:"size:36;not null;index"`
	Quantity  float64   `json:"quantity" gorm:"type:decimal(12,4);not null;default:1"`
	Weight    float64   `json:"weight" gorm:"type:decimal(12,4);default:0"`
	CostPrice float64   `json:"cost_price" gorm:"type:decimal(12,4);default:0"`
	SalePrice float64   `json:"sale_price" gorm:"type:decimal(12,4);default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (ProjectProductLine) TableName() string {
	return "mps_project_product_lines"
}

// ProjectTotals 项目汇总（纯派生，读取时计算）
type ProjectTotals struct {
	TotalCost   float64 `json:"total_cost"`
	TotalSale   float64 `json:"total_sale"`
	TotalProfit float64 `json:"total_profit"`
}

// Totals 按产品行汇总成本/售价/利润
func (p *Project) Totals() ProjectTotals {
	var t ProjectTotals
	for _, line := range p.ProductLines {
		t.TotalCost += line.CostPrice * line.Quantity
		t.TotalSale += line.SalePrice * line.Quantity
	}
	t.TotalProfit = t.TotalSale - t.TotalCost
	return t
}
