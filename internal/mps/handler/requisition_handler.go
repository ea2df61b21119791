package handler

import (
	"net/http"

	"github.com/bitfantasy/nimo-mps/internal/mps/service"
	"github.com/gin-gonic/gin"
)

type RequisitionHandler struct {
	svc *service.RequisitionService
}

func NewRequisitionHandler(svc *service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc}
}

func (h *RequisitionHandler) CreateFromPlan(c *gin.Context) {
	var req service.CreateFromPlanRequest
	c.ShouldBindJSON(&req)
	userID, _ := c.Get("user_id")
	requisition, err := h.svc.CreateFromPlan(c.Request.Context(), c.Param("id"), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": requisition})
}

func (h *RequisitionHandler) ListByPlan(c *gin.Context) {
	requisitions, err := h.svc.ListByPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": requisitions})
}

func (h *RequisitionHandler) Get(c *gin.Context) {
	requisition, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "请购单不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": requisition})
}

func (h *RequisitionHandler) Confirm(c *gin.Context) {
	requisition, err := h.svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": requisition})
}

func (h *RequisitionHandler) Receive(c *gin.Context) {
	requisition, err := h.svc.Receive(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": requisition})
}
