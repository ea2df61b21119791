package entity

import (
	"time"
)

// OrderStatus 生产订单状态
const (
	OrderStatusDraft      = "draft"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusInProgress = "in_progress"
	OrderStatusDone       = "done"
	OrderStatusCancelled  = "cancelled"
)

// OpStatus 工序状态
const (
	OpStatusPending  = "pending"
	OpStatusReady    = "ready"
	OpStatusProgress = "progress"
	OpStatusDone     = "done"
	OpStatusCancel   = "cancel"
)

// ProductionOrder 生产订单
type ProductionOrder struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Code      string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProductID string     `json:"product_id" gorm:"size:36;not null;index"`
	Quantity  float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	BOMID     *string    `json:"bom_id" gorm:"size:36"`
	Origin    string     `json:"origin" gorm:"size:128;index"`
	Status    string     `json:"status" gorm:"size:20;not null;default:draft"`
	CreatedBy string     `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Product    *Product              `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Operations []ProductionOperation `json:"operations,omitempty" gorm:"foreignKey:OrderID"`
}

func (ProductionOrder) TableName() string {
	return "mps_production_orders"
}

// ProductionOperation 车间工序
type ProductionOperation struct {
	ID               string     `json:"id" gorm:"primaryKey;size:36"`
	OrderID          string     `json:"order_id" gorm:"size:36;not null;index"`
	Sequence         int        `json:"sequence" gorm:"default:10"`
	Name             string     `json:"name" gorm:"size:128"`
	WorkCenterID     string     `json:"work_center_id" gorm:"size:36"`
	Status           string     `json:"status" gorm:"size:20;not null;default:pending"`
	DurationExpected float64    `json:"duration_expected" gorm:"type:decimal(12,2);default:0"`
	DurationReal     float64    `json:"duration_real" gorm:"type:decimal(12,2);default:0"`
	QtyToProduce     float64    `json:"qty_to_produce" gorm:"type:decimal(12,4);default:0"`
	QtyProduced      float64    `json:"qty_produced" gorm:"type:decimal(12,4);default:0"`
	StartedAt        *time.Time `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (ProductionOperation) TableName() string {
	return "mps_production_operations"
}

// IsCompleted 工序是否已结束（完成或取消）
func (o *ProductionOperation) IsCompleted() bool {
	return o.Status == OpStatusDone || o.Status == OpStatusCancel
}
