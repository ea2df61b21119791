package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mps/internal/mps/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type ExecutionHandler struct {
	svc *service.ExecutionService
}

func NewExecutionHandler(svc *service.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{svc: svc}
}

func (h *ExecutionHandler) Create(c *gin.Context) {
	var req service.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	userID, _ := c.Get("user_id")
	run, err := h.svc.Create(c.Request.Context(), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": run})
}

func (h *ExecutionHandler) Get(c *gin.Context) {
	detail, err := h.svc.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "执行跟踪不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": detail})
}

func (h *ExecutionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	runs, total, err := h.svc.List(c.Request.Context(), c.Query("project_id"), c.Query("status"), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": runs, "total": total, "page": page, "size": size}})
}

func (h *ExecutionHandler) Load(c *gin.Context) {
	detail, err := h.svc.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": detail})
}

func (h *ExecutionHandler) Start(c *gin.Context) {
	run, err := h.svc.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": run})
}

func (h *ExecutionHandler) Done(c *gin.Context) {
	run, err := h.svc.Done(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": run})
}

func (h *ExecutionHandler) Cancel(c *gin.Context) {
	run, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": run})
}

func (h *ExecutionHandler) AssignResources(c *gin.Context) {
	var req service.AssignResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	updated, err := h.svc.AssignResources(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"updated": updated}})
}

func (h *ExecutionHandler) UpdateOperationLine(c *gin.Context) {
	var req service.UpdateOperationLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	line, err := h.svc.UpdateOperationLine(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": line})
}

func (h *ExecutionHandler) StartOperationLine(c *gin.Context) {
	line, err := h.svc.StartOperationLine(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": line})
}

func (h *ExecutionHandler) CompleteOperationLine(c *gin.Context) {
	var req service.CompleteOperationLineRequest
	c.ShouldBindJSON(&req)
	line, err := h.svc.CompleteOperationLine(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": line})
}

func (h *ExecutionHandler) ExportOperations(c *gin.Context) {
	f, filename, err := h.svc.ExportOperations(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func (h *ExecutionHandler) ImportActuals(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "请上传Excel文件"})
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "无法解析Excel文件: " + err.Error()})
		return
	}
	defer f.Close()

	result, err := h.svc.ImportActuals(c.Request.Context(), c.Param("id"), f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": result})
}
