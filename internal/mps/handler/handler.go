package handler

import (
	"github.com/bitfantasy/nimo-mps/internal/mps/service"
	"github.com/gin-gonic/gin"
)

// Handlers MPS HTTP处理器集合
type Handlers struct {
	Project     *ProjectHandler
	Pricing     *PricingHandler
	Planning    *PlanningHandler
	Production  *ProductionHandler
	Execution   *ExecutionHandler
	Requisition *RequisitionHandler
	Report      *ReportHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Project:     NewProjectHandler(services.Project),
		Pricing:     NewPricingHandler(services.Pricing),
		Planning:    NewPlanningHandler(services.Planning, services.Allocation),
		Production:  NewProductionHandler(services.Production),
		Execution:   NewExecutionHandler(services.Execution),
		Requisition: NewRequisitionHandler(services.Requisition),
		Report:      NewReportHandler(services.Report),
	}
}

// RegisterRoutes 注册MPS路由
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers) {
	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.List)
		projects.POST("", h.Project.Create)
		projects.GET("/:id", h.Project.Get)
		projects.PUT("/:id", h.Project.Update)
		projects.POST("/:id/product-lines", h.Project.AddProductLine)
	}

	// 产品定价
	pricings := v1.Group("/pricings")
	{
		pricings.GET("", h.Pricing.List)
		pricings.POST("", h.Pricing.Create)
		pricings.GET("/:id", h.Pricing.Get)
		pricings.POST("/:id/new-version", h.Pricing.CreateNewVersion)
		pricings.POST("/:id/confirm", h.Pricing.Confirm)
		pricings.POST("/:id/approve", h.Pricing.Approve)
		pricings.POST("/:id/cancel", h.Pricing.Cancel)
		pricings.POST("/:id/reset-to-draft", h.Pricing.ResetToDraft)
		pricings.POST("/:id/import-components", h.Pricing.ImportComponents)
		pricings.PUT("/components/:component_id/specs", h.Pricing.SaveComponentSpecs)
	}

	// 物料计划
	plans := v1.Group("/plans")
	{
		plans.GET("", h.Planning.List)
		plans.POST("", h.Planning.Create)
		plans.GET("/:id", h.Planning.Get)
		plans.POST("/:id/load-components", h.Planning.LoadComponents)
		plans.POST("/:id/compute-requirements", h.Planning.ComputeRequirements)
		plans.POST("/:id/allocate", h.Planning.Allocate)
		plans.POST("/:id/done", h.Planning.Done)
		plans.POST("/:id/cancel", h.Planning.Cancel)
		plans.POST("/:id/requisitions", h.Requisition.CreateFromPlan)
		plans.GET("/:id/requisitions", h.Requisition.ListByPlan)
		plans.GET("/:id/material-usage", h.Report.MaterialUsage)
	}

	// 生产订单
	orders := v1.Group("/production-orders")
	{
		orders.GET("", h.Production.List)
		orders.POST("", h.Production.Create)
		orders.GET("/:id", h.Production.Get)
		orders.POST("/:id/confirm", h.Production.Confirm)
		orders.POST("/:id/cancel", h.Production.Cancel)
		orders.POST("/:id/operations/:op_id/start", h.Production.StartOperation)
		orders.POST("/:id/operations/:op_id/complete", h.Production.CompleteOperation)
	}

	// 执行跟踪
	runs := v1.Group("/execution-runs")
	{
		runs.GET("", h.Execution.List)
		runs.POST("", h.Execution.Create)
		runs.GET("/:id", h.Execution.Get)
		runs.POST("/:id/load", h.Execution.Load)
		runs.POST("/:id/start", h.Execution.Start)
		runs.POST("/:id/done", h.Execution.Done)
		runs.POST("/:id/cancel", h.Execution.Cancel)
		runs.POST("/:id/assign-resources", h.Execution.AssignResources)
		runs.GET("/:id/export", h.Execution.ExportOperations)
		runs.POST("/:id/import-actuals", h.Execution.ImportActuals)
		runs.GET("/:id/progress", h.Report.Progress)
	}

	// 工序行
	opLines := v1.Group("/operation-lines")
	{
		opLines.PUT("/:id", h.Execution.UpdateOperationLine)
		opLines.POST("/:id/start", h.Execution.StartOperationLine)
		opLines.POST("/:id/complete", h.Execution.CompleteOperationLine)
	}

	// 请购单
	requisitions := v1.Group("/requisitions")
	{
		requisitions.GET("/:id", h.Requisition.Get)
		requisitions.POST("/:id/confirm", h.Requisition.Confirm)
		requisitions.POST("/:id/receive", h.Requisition.Receive)
	}
}
