package entity

import (
	"time"
)

// RunStatus 执行跟踪状态
const (
	RunStatusDraft      = "draft"
	RunStatusLoaded     = "loaded"
	RunStatusInProgress = "in_progress"
	RunStatusDone       = "done"
	RunStatusCancelled  = "cancelled"
)

// 执行行"当前工序"标签
const (
	CurrentOpAllDone      = "全部工序完成"
	CurrentOpNotStarted   = "未开始"
	CurrentOpNoOperations = "无工序"
)

// LineStatus 执行行汇总状态
const (
	LineStatusNotStarted = "not_started"
	LineStatusInProgress = "in_progress"
	LineStatusCompleted  = "completed"
)

// ExecutionRun 工单执行跟踪（每次 项目+产品 的执行视图，load时整表重建）
type ExecutionRun struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Code      string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	ProjectID string     `json:"project_id" gorm:"size:36;not null;index"`
	ProductID string     `json:"product_id" gorm:"size:36;not null;index"`
	Status    string     `json:"status" gorm:"size:20;not null;default:draft"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Lines []ExecutionLine `json:"lines,omitempty" gorm:"foreignKey:RunID"`
}

func (ExecutionRun) TableName() string {
	return "mps_execution_runs"
}

// ExecutionLine 执行行，对应一个生产订单
type ExecutionLine struct {
	ID                string    `json:"id" gorm:"primaryKey;size:36"`
	RunID             string    `json:"run_id" gorm:"size:36;not null;index"`
	Sequence          int       `json:"sequence" gorm:"default:10"`
	ComponentID       string    `json:"component_id" gorm:"size:36;not null"`
	ProductionOrderID string    `json:"production_order_id" gorm:"size:36;not null;index"`
	Quantity          float64   `json:"quantity" gorm:"type:decimal(12,4);default:0"`
	Weight            float64   `json:"weight" gorm:"type:decimal(12,4);default:0"`
	AdditionalCode    string    `json:"additional_code" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	OperationLines []OperationLine `json:"operation_lines,omitempty" gorm:"foreignKey:LineID"`
}

func (ExecutionLine) TableName() string {
	return "mps_execution_lines"
}

// OperationLine 工序跟踪行。actual_duration/workers_assigned/machines_assigned
// 为仅有的用户可写字段，重载时按 (生产订单, 工序) 身份保留。
type OperationLine struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	LineID            string     `json:"line_id" gorm:"size:36;not null;index"`
	RunID             string     `json:"run_id" gorm:"size:36;not null;index"`
	ProductionOrderID string     `json:"production_order_id" gorm:"size:36;not null;index"`
	OperationID       string     `json:"operation_id" gorm:"size:36;not null;index"`
	Sequence          int        `json:"sequence" gorm:"default:10"`
	Name              string     `json:"name" gorm:"size:128;not null"`
	WorkCenterID      string     `json:"work_center_id" gorm:"size:36"`
	Status            string     `json:"status" gorm:"size:20;not null;default:pending"`
	DurationExpected  float64    `json:"duration_expected" gorm:"type:decimal(12,2);default:0"`
	DurationReal      float64    `json:"duration_real" gorm:"type:decimal(12,2);default:0"`
	ActualDuration    float64    `json:"actual_duration" gorm:"type:decimal(12,2);default:0"`
	WorkersAssigned   int        `json:"workers_assigned" gorm:"default:0"`
	MachinesAssigned  int        `json:"machines_assigned" gorm:"default:0"`
	QtyToProduce      float64    `json:"qty_to_produce" gorm:"type:decimal(12,4);default:0"`
	QtyProduced       float64    `json:"qty_produced" gorm:"type:decimal(12,4);default:0"`
	AdditionalCode    string     `json:"additional_code" gorm:"type:text"`
	Specifications    SpecList   `json:"specifications" gorm:"type:text"`
	StartedAt         *time.Time `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (OperationLine) TableName() string {
	return "mps_operation_lines"
}

// IsCompleted 工序行是否已结束
func (o *OperationLine) IsCompleted() bool {
	return o.Status == OpStatusDone || o.Status == OpStatusCancel
}

// LineProgress 执行行进度：100 × 完成工序数 / 工序总数，无工序时为0。纯派生。
func LineProgress(ops []OperationLine) float64 {
	if len(ops) == 0 {
		return 0
	}
	done := 0
	for _, op := range ops {
		if op.Status == OpStatusDone {
			done++
		}
	}
	return float64(done) / float64(len(ops)) * 100
}

// LineStatus 执行行汇总状态：全部工序结束为 completed，任一开工或完成为 in_progress
func LineStatus(ops []OperationLine) string {
	if len(ops) == 0 {
		return LineStatusNotStarted
	}
	started, finished := 0, 0
	for _, op := range ops {
		if op.Status == OpStatusProgress || op.IsCompleted() {
			started++
		}
		if op.IsCompleted() {
			finished++
		}
	}
	if finished == len(ops) {
		return LineStatusCompleted
	}
	if started > 0 {
		return LineStatusInProgress
	}
	return LineStatusNotStarted
}

// CurrentOperation 当前工序：首个 ready/progress 工序名；全部完成或尚未开始时返回对应标签
func CurrentOperation(ops []OperationLine) string {
	if len(ops) == 0 {
		return CurrentOpNoOperations
	}
	for _, op := range ops {
		if op.Status == OpStatusReady || op.Status == OpStatusProgress {
			return op.Name
		}
	}
	done := 0
	for _, op := range ops {
		if op.Status == OpStatusDone {
			done++
		}
	}
	if done == len(ops) {
		return CurrentOpAllDone
	}
	return CurrentOpNotStarted
}
