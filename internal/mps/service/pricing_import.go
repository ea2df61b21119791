package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ImportComponents 从CSV导入定价部件行（列：部件编码,数量,重量,成本单价）。
// 国产办公软件导出的CSV常为GBK编码，先转UTF-8再解析。
// 只有草稿状态的定价版本允许导入。
func (s *PricingService) ImportComponents(ctx context.Context, pricingID string, reader io.Reader) (*ImportResult, error) {
	pricing, err := s.pricingRepo.GetByID(ctx, pricingID)
	if err != nil {
		return nil, fmt.Errorf("定价版本不存在: %w", err)
	}
	if pricing.Status != entity.PricingStatusDraft {
		return nil, fmt.Errorf("只有草稿定价才能导入部件")
	}

	// GBK → UTF-8
	utf8Reader := transform.NewReader(reader, simplifiedchinese.GBK.NewDecoder())
	r := csv.NewReader(utf8Reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	maxSeq := 0
	for _, comp := range pricing.Components {
		if comp.Sequence > maxSeq {
			maxSeq = comp.Sequence
		}
	}

	result := &ImportResult{}
	lineNo := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析CSV失败: %w", err)
		}
		lineNo++
		// 第一行是表头
		if lineNo == 1 {
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			result.Failed++
			continue
		}

		code := strings.TrimSpace(record[0])
		product, err := s.productRepo.GetByCode(ctx, code)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 部件编码 %s 不存在", lineNo, code))
			continue
		}

		qty, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil || qty <= 0 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 数量无效", lineNo))
			continue
		}

		weight := 0.0
		if len(record) > 2 {
			if w, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err == nil {
				weight = w
			}
		}
		costPrice := product.StandardCost
		if len(record) > 3 {
			if c, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64); err == nil {
				costPrice = c
			}
		}

		maxSeq += 10
		comp := &entity.PricingComponent{
			ID:          uuid.New().String(),
			PricingID:   pricing.ID,
			Sequence:    maxSeq,
			ComponentID: product.ID,
			Quantity:    qty,
			Weight:      weight,
			CostPrice:   costPrice,
		}
		if bom, err := s.bomRepo.GetReleasedByProductID(ctx, product.ID); err == nil {
			comp.BOMID = &bom.ID
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("查询部件BOM失败: %w", err)
		}

		if err := s.pricingRepo.UpdateComponent(ctx, comp); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 保存失败", lineNo))
			continue
		}
		result.Imported++
	}
	return result, nil
}
