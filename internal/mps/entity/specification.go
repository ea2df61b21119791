package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SpecificationDefinition 规格定义（如：材质、颜色、尺寸）
type SpecificationDefinition struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Code        string    `json:"code" gorm:"size:32;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:64;not null"`
	Sequence    int       `json:"sequence" gorm:"default:10"`
	Active      bool      `json:"active" gorm:"default:true"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SpecificationDefinition) TableName() string {
	return "mps_specification_definitions"
}

// SpecificationValue 规格取值，归属定价部件行或计划部件行之一，随父行级联删除
type SpecificationValue struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:36"`
	PricingComponentID  *string   `json:"pricing_component_id" gorm:"size:36;index"`
	PlanningComponentID *string   `json:"planning_component_id" gorm:"size:36;index"`
	SpecificationID     string    `json:"specification_id" gorm:"size:36;not null"`
	SpecificationName   string    `json:"specification_name" gorm:"size:64"`
	Value               string    `json:"value" gorm:"size:256;not null"`
	Sequence            int       `json:"sequence" gorm:"default:10"`
	Notes               string    `json:"notes" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (SpecificationValue) TableName() string {
	return "mps_specification_values"
}

// SpecItem 规格快照条目（工序行上的非关联副本）
type SpecItem struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Sequence int    `json:"sequence"`
	Notes    string `json:"notes,omitempty"`
}

// SpecList 规格快照列表，序列化为JSON存储
type SpecList []SpecItem

func (s SpecList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *SpecList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("无法解析规格快照列类型: %T", value)
	}
	return json.Unmarshal(bytes, s)
}
