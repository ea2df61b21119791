package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mps/internal/mps/service"
	"github.com/gin-gonic/gin"
)

type ProductionHandler struct {
	svc *service.ProductionService
}

func NewProductionHandler(svc *service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

func (h *ProductionHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	userID, _ := c.Get("user_id")
	order, err := h.svc.Create(c.Request.Context(), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": order})
}

func (h *ProductionHandler) Get(c *gin.Context) {
	order, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "生产订单不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": order})
}

func (h *ProductionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	orders, total, err := h.svc.List(c.Request.Context(),
		c.Query("product_id"), c.Query("origin"), c.Query("status"), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": orders, "total": total, "page": page, "size": size}})
}

func (h *ProductionHandler) Confirm(c *gin.Context) {
	order, err := h.svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": order})
}

func (h *ProductionHandler) Cancel(c *gin.Context) {
	order, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": order})
}

func (h *ProductionHandler) StartOperation(c *gin.Context) {
	if err := h.svc.StartOperation(c.Request.Context(), c.Param("id"), c.Param("op_id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success"})
}

func (h *ProductionHandler) CompleteOperation(c *gin.Context) {
	var req struct {
		QtyProduced  float64 `json:"qty_produced"`
		DurationReal float64 `json:"duration_real"`
	}
	c.ShouldBindJSON(&req)
	if err := h.svc.CompleteOperation(c.Request.Context(), c.Param("id"), c.Param("op_id"), req.QtyProduced, req.DurationReal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success"})
}
