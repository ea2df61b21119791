package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有MPS表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 主数据
		&Product{},
		&BOMHeader{},
		&BOMItem{},
		&RoutingOperation{},
		&Stock{},

		// 项目与定价
		&Project{},
		&ProjectProductLine{},
		&Pricing{},
		&PricingComponent{},
		&SpecificationDefinition{},
		&SpecificationValue{},

		// 物料计划
		&MaterialPlan{},
		&PlanningComponent{},
		&MaterialRequirementLine{},

		// 生产
		&ProductionOrder{},
		&ProductionOperation{},

		// 执行跟踪
		&ExecutionRun{},
		&ExecutionLine{},
		&OperationLine{},

		// 请购
		&Requisition{},
		&RequisitionLine{},

		// 单号计数器
		&Sequence{},
	)
}
