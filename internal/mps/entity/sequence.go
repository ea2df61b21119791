package entity

import "time"

// Sequence 业务单号计数器，按名称独立递增
type Sequence struct {
	Name      string    `json:"name" gorm:"primaryKey;size:50"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Sequence) TableName() string {
	return "mps_sequences"
}
