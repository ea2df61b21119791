package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mps/internal/mps/service"
	"github.com/gin-gonic/gin"
)

type PlanningHandler struct {
	svc        *service.PlanningService
	allocation *service.AllocationService
}

func NewPlanningHandler(svc *service.PlanningService, allocation *service.AllocationService) *PlanningHandler {
	return &PlanningHandler{svc: svc, allocation: allocation}
}

func (h *PlanningHandler) Create(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	userID, _ := c.Get("user_id")
	plan, err := h.svc.Create(c.Request.Context(), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": plan})
}

func (h *PlanningHandler) Get(c *gin.Context) {
	plan, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "计划不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": plan})
}

func (h *PlanningHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	plans, total, err := h.svc.List(c.Request.Context(),
		c.Query("project_id"), c.Query("product_id"), c.Query("status"), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": plans, "total": total, "page": page, "size": size}})
}

func (h *PlanningHandler) LoadComponents(c *gin.Context) {
	plan, err := h.svc.LoadComponents(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": plan})
}

func (h *PlanningHandler) ComputeRequirements(c *gin.Context) {
	plan, err := h.svc.ComputeRequirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": plan})
}

func (h *PlanningHandler) Allocate(c *gin.Context) {
	var req service.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	userID, _ := c.Get("user_id")
	result, err := h.allocation.Allocate(c.Request.Context(), c.Param("id"), req, userID.(string))
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": result})
}

func (h *PlanningHandler) Done(c *gin.Context) {
	plan, err := h.svc.Done(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": plan})
}

func (h *PlanningHandler) Cancel(c *gin.Context) {
	plan, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": plan})
}
