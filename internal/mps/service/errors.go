package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
)

// 服务层错误定义
var (
	ErrPlanNotFound       = errors.New("计划不存在")
	ErrNoComponents       = errors.New("计划没有部件行，请先加载部件")
	ErrInvalidQuantity    = errors.New("数量必须大于0")
	ErrNoProductionOrders = errors.New("没有可执行的生产订单")
	ErrNoShortage         = errors.New("计划没有缺料，无需请购")
)

// PlanNotReadyError 计划状态不满足操作前置条件
type PlanNotReadyError struct {
	PlanID string
	Status string
	Needed string
}

func (e *PlanNotReadyError) Error() string {
	return fmt.Sprintf("计划 %s 当前状态为 %s，需要 %s", e.PlanID, e.Status, e.Needed)
}

// QuantityExceedsRemainingError 下单数量超出计划剩余量
type QuantityExceedsRemainingError struct {
	Requested float64
	Planned   float64
	Produced  float64
	Remaining float64
}

func (e *QuantityExceedsRemainingError) Error() string {
	return fmt.Sprintf("下单数量 %.4f 超出剩余可生产量 %.4f（计划 %.4f，已下单 %.4f）",
		e.Requested, e.Remaining, e.Planned, e.Produced)
}

// ComponentQuantityExceededError 部件累计下单量超出部件计划量
type ComponentQuantityExceededError struct {
	ComponentID   string
	ComponentName string
	Requested     float64
	Allowed       float64
}

func (e *ComponentQuantityExceededError) Error() string {
	return fmt.Sprintf("部件 %s 累计下单量 %.4f 超出计划量 %.4f",
		e.ComponentName, e.Requested, e.Allowed)
}

// MaterialShortageError 存在缺料（严格模式下阻断下单）
type MaterialShortageError struct {
	Lines []entity.MaterialRequirementLine
}

func (e *MaterialShortageError) Error() string {
	return fmt.Sprintf("存在 %d 项物料缺口", len(e.Lines))
}
