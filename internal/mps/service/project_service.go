package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
)

// ProjectService 项目服务
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	productRepo *repository.ProductRepository
	codes       *CodeGenerator
}

// NewProjectService 创建项目服务
func NewProjectService(projectRepo *repository.ProjectRepository, productRepo *repository.ProductRepository, codes *CodeGenerator) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, productRepo: productRepo, codes: codes}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name         string                     `json:"name" binding:"required"`
	CustomerName string                     `json:"customer_name"`
	StartDate    string                     `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate      string                     `json:"end_date" binding:"required"`
	Notes        string                     `json:"notes"`
	ProductLines []CreateProductLineRequest `json:"product_lines"`
}

// CreateProductLineRequest 项目产品行请求
type CreateProductLineRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	Weight    float64 `json:"weight"`
	CostPrice float64 `json:"cost_price"`
	SalePrice float64 `json:"sale_price"`
}

// Create 创建项目
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest, userID string) (*entity.Project, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("开始日期格式错误: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("结束日期格式错误: %w", err)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("结束日期不能早于开始日期")
	}

	code, err := s.codes.Next(ctx, "PRJ")
	if err != nil {
		return nil, err
	}
	project := &entity.Project{
		ID:           uuid.New().String(),
		Code:         code,
		Name:         req.Name,
		CustomerName: req.CustomerName,
		StartDate:    startDate,
		EndDate:      endDate,
		Status:       entity.ProjectStatusDraft,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}

	for i, lineReq := range req.ProductLines {
		if _, err := s.productRepo.GetByID(ctx, lineReq.ProductID); err != nil {
			return nil, fmt.Errorf("产品不存在: %s", lineReq.ProductID)
		}
		project.ProductLines = append(project.ProductLines, entity.ProjectProductLine{
			ID:        uuid.New().String(),
			ProjectID: project.ID,
			Sequence:  (i + 1) * 10,
			ProductID: lineReq.ProductID,
			Quantity:  lineReq.Quantity,
			Weight:    lineReq.Weight,
			CostPrice: lineReq.CostPrice,
			SalePrice: lineReq.SalePrice,
		})
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("创建项目失败: %w", err)
	}
	return project, nil
}

// GetByID 获取项目详情
func (s *ProjectService) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// ProjectDetail 项目详情（含汇总）
type ProjectDetail struct {
	*entity.Project
	Totals entity.ProjectTotals `json:"totals"`
}

// GetDetail 获取项目详情与成本/售价/利润汇总
func (s *ProjectService) GetDetail(ctx context.Context, id string) (*ProjectDetail, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("项目不存在: %w", err)
	}
	return &ProjectDetail{Project: project, Totals: project.Totals()}, nil
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name         string `json:"name"`
	CustomerName string `json:"customer_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

// Update 更新项目
func (s *ProjectService) Update(ctx context.Context, id string, req UpdateProjectRequest) (*entity.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("项目不存在: %w", err)
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.CustomerName != "" {
		project.CustomerName = req.CustomerName
	}
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("开始日期格式错误: %w", err)
		}
		project.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("结束日期格式错误: %w", err)
		}
		project.EndDate = t
	}
	if req.Status != "" {
		project.Status = req.Status
	}
	if req.Notes != "" {
		project.Notes = req.Notes
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}
	return project, nil
}

// List 分页查询项目
func (s *ProjectService) List(ctx context.Context, keyword, status string, page, pageSize int) ([]entity.Project, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.projectRepo.List(ctx, keyword, status, page, pageSize)
}

// AddProductLine 向项目追加产品行
func (s *ProjectService) AddProductLine(ctx context.Context, projectID string, req CreateProductLineRequest) (*entity.ProjectProductLine, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("项目不存在: %w", err)
	}
	if _, err := s.productRepo.GetByID(ctx, req.ProductID); err != nil {
		return nil, fmt.Errorf("产品不存在: %s", req.ProductID)
	}

	maxSeq := 0
	for _, line := range project.ProductLines {
		if line.Sequence > maxSeq {
			maxSeq = line.Sequence
		}
	}

	line := &entity.ProjectProductLine{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Sequence:  maxSeq + 10,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Weight:    req.Weight,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
	}
	if err := s.projectRepo.AddProductLine(ctx, line); err != nil {
		return nil, fmt.Errorf("添加产品行失败: %w", err)
	}
	return line, nil
}
