package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mps/internal/mps/service"
	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	svc *service.PricingService
}

func NewPricingHandler(svc *service.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

func (h *PricingHandler) Create(c *gin.Context) {
	var req service.CreatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	userID, _ := c.Get("user_id")
	pricing, err := h.svc.Create(c.Request.Context(), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) CreateNewVersion(c *gin.Context) {
	userID, _ := c.Get("user_id")
	pricing, err := h.svc.CreateNewVersion(c.Request.Context(), c.Param("id"), userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) Get(c *gin.Context) {
	pricing, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "定价版本不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	pricings, total, err := h.svc.List(c.Request.Context(),
		c.Query("project_id"), c.Query("product_id"), c.Query("status"), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": pricings, "total": total, "page": page, "size": size}})
}

func (h *PricingHandler) Confirm(c *gin.Context) {
	pricing, err := h.svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) Approve(c *gin.Context) {
	pricing, err := h.svc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) Cancel(c *gin.Context) {
	pricing, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) ResetToDraft(c *gin.Context) {
	pricing, err := h.svc.ResetToDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": pricing})
}

func (h *PricingHandler) SaveComponentSpecs(c *gin.Context) {
	var reqs []service.SpecValueReq
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	comp, err := h.svc.SaveComponentSpecs(c.Request.Context(), c.Param("component_id"), reqs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": comp})
}

func (h *PricingHandler) ImportComponents(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "缺少上传文件"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	defer src.Close()

	result, err := h.svc.ImportComponents(c.Request.Context(), c.Param("id"), src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": result})
}
