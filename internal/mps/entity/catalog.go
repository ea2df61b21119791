package entity

import (
	"time"
)

// ProductStatus 产品状态
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product 产品/物料主数据（成品、部件与原材料共用一张表）
type Product struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Code         string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:128;not null"`
	Unit         string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	UnitWeight   float64    `json:"unit_weight" gorm:"type:decimal(12,4);default:0"`
	StandardCost float64    `json:"standard_cost" gorm:"type:decimal(12,4);default:0"`
	ListPrice    float64    `json:"list_price" gorm:"type:decimal(12,4);default:0"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	Description  string     `json:"description" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`
}

func (Product) TableName() string {
	return "mps_products"
}

// BOMStatus BOM状态
const (
	BOMStatusDraft    = "draft"
	BOMStatusReleased = "released"
	BOMStatusObsolete = "obsolete"
)

// BOMHeader BOM头表
type BOMHeader struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProductID string    `json:"product_id" gorm:"size:36;not null;index"`
	Version   string    `json:"version" gorm:"size:16;not null;default:v1.0"`
	Status    string    `json:"status" gorm:"size:16;not null;default:draft"`
	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items   []BOMItem          `json:"items,omitempty" gorm:"foreignKey:BOMHeaderID"`
	Routing []RoutingOperation `json:"routing,omitempty" gorm:"foreignKey:BOMHeaderID"`
}

func (BOMHeader) TableName() string {
	return "mps_bom_headers"
}

// BOMItem BOM行项（单位用量）
type BOMItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	BOMHeaderID string    `json:"bom_header_id" gorm:"size:36;not null;index"`
	Sequence    int       `json:"sequence" gorm:"default:10"`
	MaterialID  string    `json:"material_id" gorm:"size:36;not null;index"`
	QtyPerUnit  float64   `json:"qty_per_unit" gorm:"type:decimal(12,4);not null"`
	Unit        string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (BOMItem) TableName() string {
	return "mps_bom_items"
}

// RoutingOperation BOM工艺路线工序
type RoutingOperation struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	BOMHeaderID     string    `json:"bom_header_id" gorm:"size:36;not null;index"`
	Sequence        int       `json:"sequence" gorm:"default:10"`
	Name            string    `json:"name" gorm:"size:128;not null"`
	WorkCenterID    string    `json:"work_center_id" gorm:"size:36"`
	DurationMinutes float64   `json:"duration_minutes" gorm:"type:decimal(12,2);default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (RoutingOperation) TableName() string {
	return "mps_routing_operations"
}

// Stock 库存快照（现有量与出库占用量）
type Stock struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	MaterialID  string    `json:"material_id" gorm:"size:36;not null;uniqueIndex"`
	OnHandQty   float64   `json:"on_hand_qty" gorm:"type:decimal(12,4);default:0"`
	OutgoingQty float64   `json:"outgoing_qty" gorm:"type:decimal(12,4);default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Stock) TableName() string {
	return "mps_stock"
}
