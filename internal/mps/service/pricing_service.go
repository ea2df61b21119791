package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
)

// PricingService 定价版本服务
type PricingService struct {
	pricingRepo *repository.PricingRepository
	projectRepo *repository.ProjectRepository
	productRepo *repository.ProductRepository
	bomRepo     *repository.BOMRepository
	codes       *CodeGenerator
}

// NewPricingService 创建定价服务
func NewPricingService(
	pricingRepo *repository.PricingRepository,
	projectRepo *repository.ProjectRepository,
	productRepo *repository.ProductRepository,
	bomRepo *repository.BOMRepository,
	codes *CodeGenerator,
) *PricingService {
	return &PricingService{
		pricingRepo: pricingRepo,
		projectRepo: projectRepo,
		productRepo: productRepo,
		bomRepo:     bomRepo,
		codes:       codes,
	}
}

// CreatePricingRequest 创建定价版本请求
type CreatePricingRequest struct {
	ProjectID  string                      `json:"project_id" binding:"required"`
	ProductID  string                      `json:"product_id" binding:"required"`
	Quantity   float64                     `json:"quantity" binding:"required,gt=0"`
	Weight     float64                     `json:"weight"`
	Notes      string                      `json:"notes"`
	Components []CreatePricingComponentReq `json:"components"`
}

// CreatePricingComponentReq 定价部件行请求
type CreatePricingComponentReq struct {
	ComponentID string         `json:"component_id" binding:"required"`
	Quantity    float64        `json:"quantity" binding:"required,gt=0"`
	Weight      float64        `json:"weight"`
	CostPrice   float64        `json:"cost_price"`
	Specs       []SpecValueReq `json:"specs"`
}

// SpecValueReq 规格取值请求
type SpecValueReq struct {
	SpecificationID   string `json:"specification_id" binding:"required"`
	SpecificationName string `json:"specification_name"`
	Value             string `json:"value"`
	Notes             string `json:"notes"`
}

// Create 创建定价版本。版本号取 项目+产品 当前最大版本+1，只追加不改写。
func (s *PricingService) Create(ctx context.Context, req CreatePricingRequest, userID string) (*entity.Pricing, error) {
	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID); err != nil {
		return nil, fmt.Errorf("项目不存在: %w", err)
	}
	if _, err := s.productRepo.GetByID(ctx, req.ProductID); err != nil {
		return nil, fmt.Errorf("产品不存在: %w", err)
	}

	maxVersion, err := s.pricingRepo.MaxVersion(ctx, req.ProjectID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("查询版本号失败: %w", err)
	}

	code, err := s.codes.Next(ctx, "PC")
	if err != nil {
		return nil, err
	}
	pricing := &entity.Pricing{
		ID:          uuid.New().String(),
		Code:        code,
		ProjectID:   req.ProjectID,
		ProductID:   req.ProductID,
		Version:     maxVersion + 1,
		PricingDate: time.Now(),
		Quantity:    req.Quantity,
		Weight:      req.Weight,
		Status:      entity.PricingStatusDraft,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}

	for i, compReq := range req.Components {
		if _, err := s.productRepo.GetByID(ctx, compReq.ComponentID); err != nil {
			return nil, fmt.Errorf("部件不存在: %s", compReq.ComponentID)
		}

		comp := entity.PricingComponent{
			ID:          uuid.New().String(),
			PricingID:   pricing.ID,
			Sequence:    (i + 1) * 10,
			ComponentID: compReq.ComponentID,
			Quantity:    compReq.Quantity,
			Weight:      compReq.Weight,
			CostPrice:   compReq.CostPrice,
		}

		// 部件有已发布BOM时记录引用，用于后续下单与排工序
		if bom, err := s.bomRepo.GetReleasedByProductID(ctx, compReq.ComponentID); err == nil {
			comp.BOMID = &bom.ID
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("查询部件BOM失败: %w", err)
		}

		for j, specReq := range compReq.Specs {
			comp.Specifications = append(comp.Specifications, entity.SpecificationValue{
				ID:                 uuid.New().String(),
				PricingComponentID: &comp.ID,
				SpecificationID:    specReq.SpecificationID,
				SpecificationName:  specReq.SpecificationName,
				Value:              specReq.Value,
				Sequence:           (j + 1) * 10,
				Notes:              specReq.Notes,
			})
		}
		comp.AdditionalCode = entity.AdditionalCodeFromSpecs(comp.Specifications)

		pricing.Components = append(pricing.Components, comp)
	}

	if err := s.pricingRepo.Create(ctx, pricing); err != nil {
		return nil, fmt.Errorf("创建定价版本失败: %w", err)
	}
	return pricing, nil
}

// CreateNewVersion 基于已有版本复制出新的草稿版本。
// 部件行与规格整体复制，版本号取当前最大版本+1，源版本不做任何修改。
func (s *PricingService) CreateNewVersion(ctx context.Context, sourceID, userID string) (*entity.Pricing, error) {
	source, err := s.pricingRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}

	maxVersion, err := s.pricingRepo.MaxVersion(ctx, source.ProjectID, source.ProductID)
	if err != nil {
		return nil, fmt.Errorf("查询版本号失败: %w", err)
	}

	code, err := s.codes.Next(ctx, "PC")
	if err != nil {
		return nil, err
	}
	pricing := &entity.Pricing{
		ID:          uuid.New().String(),
		Code:        code,
		ProjectID:   source.ProjectID,
		ProductID:   source.ProductID,
		Version:     maxVersion + 1,
		PricingDate: time.Now(),
		Quantity:    source.Quantity,
		Weight:      source.Weight,
		Status:      entity.PricingStatusDraft,
		Notes:       source.Notes,
		CreatedBy:   userID,
	}

	for _, src := range source.Components {
		comp := entity.PricingComponent{
			ID:             uuid.New().String(),
			PricingID:      pricing.ID,
			Sequence:       src.Sequence,
			ComponentID:    src.ComponentID,
			BOMID:          src.BOMID,
			Quantity:       src.Quantity,
			Weight:         src.Weight,
			CostPrice:      src.CostPrice,
			AdditionalCode: src.AdditionalCode,
		}
		for _, spec := range src.Specifications {
			comp.Specifications = append(comp.Specifications, entity.SpecificationValue{
				ID:                 uuid.New().String(),
				PricingComponentID: &comp.ID,
				SpecificationID:    spec.SpecificationID,
				SpecificationName:  spec.SpecificationName,
				Value:              spec.Value,
				Sequence:           spec.Sequence,
				Notes:              spec.Notes,
			})
		}
		pricing.Components = append(pricing.Components, comp)
	}

	if err := s.pricingRepo.Create(ctx, pricing); err != nil {
		return nil, fmt.Errorf("创建定价版本失败: %w", err)
	}
	return pricing, nil
}

// GetByID 获取定价版本详情
func (s *PricingService) GetByID(ctx context.Context, id string) (*entity.Pricing, error) {
	return s.pricingRepo.GetByID(ctx, id)
}

// List 分页查询定价版本
func (s *PricingService) List(ctx context.Context, projectID, productID, status string, page, pageSize int) ([]entity.Pricing, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.pricingRepo.List(ctx, projectID, productID, status, page, pageSize)
}

// Confirm 确认定价版本，同时回写项目产品行的数量/重量/成本
func (s *PricingService) Confirm(ctx context.Context, id string) (*entity.Pricing, error) {
	pricing, err := s.pricingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}
	if pricing.Status != entity.PricingStatusDraft {
		return nil, fmt.Errorf("定价状态不允许确认: %s", pricing.Status)
	}

	pricing.Status = entity.PricingStatusConfirmed
	if err := s.pricingRepo.Update(ctx, pricing); err != nil {
		return nil, fmt.Errorf("确认定价失败: %w", err)
	}

	// 项目产品行镜像最新确认定价的数量/重量/成本
	line, err := s.projectRepo.GetProductLine(ctx, pricing.ProjectID, pricing.ProductID)
	if err == nil {
		line.Quantity = pricing.Quantity
		line.Weight = pricing.Weight
		line.CostPrice = pricing.TotalComponentCost()
		if err := s.projectRepo.UpdateProductLine(ctx, line); err != nil {
			return nil, fmt.Errorf("回写项目产品行失败: %w", err)
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("查询项目产品行失败: %w", err)
	}

	return pricing, nil
}

// Approve 审批定价版本
func (s *PricingService) Approve(ctx context.Context, id string) (*entity.Pricing, error) {
	pricing, err := s.pricingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}
	if pricing.Status != entity.PricingStatusConfirmed {
		return nil, fmt.Errorf("定价状态不允许审批: %s", pricing.Status)
	}
	pricing.Status = entity.PricingStatusApproved
	if err := s.pricingRepo.Update(ctx, pricing); err != nil {
		return nil, fmt.Errorf("审批定价失败: %w", err)
	}
	return pricing, nil
}

// Cancel 取消定价版本
func (s *PricingService) Cancel(ctx context.Context, id string) (*entity.Pricing, error) {
	pricing, err := s.pricingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}
	if pricing.Status == entity.PricingStatusCancelled {
		return pricing, nil
	}
	pricing.Status = entity.PricingStatusCancelled
	if err := s.pricingRepo.Update(ctx, pricing); err != nil {
		return nil, fmt.Errorf("取消定价失败: %w", err)
	}
	return pricing, nil
}

// ResetToDraft 已取消的定价版本退回草稿，重新进入编辑流程
func (s *PricingService) ResetToDraft(ctx context.Context, id string) (*entity.Pricing, error) {
	pricing, err := s.pricingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}
	if pricing.Status != entity.PricingStatusCancelled {
		return nil, fmt.Errorf("定价状态不允许退回草稿: %s", pricing.Status)
	}
	pricing.Status = entity.PricingStatusDraft
	if err := s.pricingRepo.Update(ctx, pricing); err != nil {
		return nil, fmt.Errorf("退回草稿失败: %w", err)
	}
	return pricing, nil
}

// SaveComponentSpecs 整表替换部件规格并重算附加代码
func (s *PricingService) SaveComponentSpecs(ctx context.Context, componentID string, reqs []SpecValueReq) (*entity.PricingComponent, error) {
	comp, err := s.pricingRepo.GetComponent(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("定价部件行不存在: %w", err)
	}

	specs := make([]entity.SpecificationValue, 0, len(reqs))
	for i, req := range reqs {
		specs = append(specs, entity.SpecificationValue{
			ID:                uuid.New().String(),
			SpecificationID:   req.SpecificationID,
			SpecificationName: req.SpecificationName,
			Value:             req.Value,
			Sequence:          (i + 1) * 10,
			Notes:             req.Notes,
		})
	}

	if err := s.pricingRepo.ReplaceComponentSpecs(ctx, componentID, specs); err != nil {
		return nil, fmt.Errorf("保存规格失败: %w", err)
	}

	// 规格落库后显式重算附加代码
	comp.Specifications = specs
	comp.AdditionalCode = entity.AdditionalCodeFromSpecs(specs)
	if err := s.pricingRepo.UpdateComponent(ctx, comp); err != nil {
		return nil, fmt.Errorf("更新附加代码失败: %w", err)
	}
	return comp, nil
}
