package entity

import (
	"time"
)

// RequisitionStatus 请购单状态
const (
	RequisitionStatusDraft     = "draft"
	RequisitionStatusConfirmed = "confirmed"
	RequisitionStatusReceived  = "received"
	RequisitionStatusCancelled = "cancelled"
)

// Requisition 缺料请购单（由需求缺口按物料归并生成）
type Requisition struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Code         string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	PlanID       string     `json:"plan_id" gorm:"size:36;not null;index"`
	SupplierName string     `json:"supplier_name" gorm:"size:128"`
	Status       string     `json:"status" gorm:"size:20;not null;default:draft"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Lines []RequisitionLine `json:"lines,omitempty" gorm:"foreignKey:RequisitionID"`
}

func (Requisition) TableName() string {
	return "mps_requisitions"
}

// RequisitionLine 请购行
type RequisitionLine struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	RequisitionID string    `json:"requisition_id" gorm:"size:36;not null;index"`
	MaterialID    string    `json:"material_id" gorm:"size:36;not null"`
	Quantity      float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitPrice     float64   `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	CreatedAt     time.Time `json:"created_at"`
}

func (RequisitionLine) TableName() string {
	return "mps_requisition_lines"
}
