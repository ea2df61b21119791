package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var operationExportHeaders = []string{
	"工序行ID", "生产订单", "工序", "工作中心", "状态",
	"预计工时(分)", "实际工时(分)", "录入工时(分)", "人数", "机台数",
	"计划数量", "完成数量", "附加代码",
}

// ExportOperations 导出执行跟踪的工序行到Excel
func (s *ExecutionService) ExportOperations(ctx context.Context, runID string) (*excelize.File, string, error) {
	run, err := s.executionRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, "", fmt.Errorf("执行跟踪不存在: %w", err)
	}
	lines, err := s.executionRepo.GetOperationLines(ctx, runID)
	if err != nil {
		return nil, "", fmt.Errorf("读取工序行失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Operations"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range operationExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, line := range lines {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.ProductionOrderID)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.Name)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), line.WorkCenterID)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), line.Status)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), line.DurationExpected)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), line.DurationReal)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), line.ActualDuration)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), line.WorkersAssigned)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), line.MachinesAssigned)
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), line.QtyToProduce)
		f.SetCellValue(sheet, fmt.Sprintf("L%d", row), line.QtyProduced)
		f.SetCellValue(sheet, fmt.Sprintf("M%d", row), line.AdditionalCode)
	}

	filename := fmt.Sprintf("operations_%s.xlsx", run.Code)
	return f, filename, nil
}

// ImportResult 导入结果
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportActuals 从Excel导入工序行实际数据。
// 按第一列工序行ID匹配，只回写用户可写字段（录入工时/人数/机台数）。
func (s *ExecutionService) ImportActuals(ctx context.Context, runID string, f *excelize.File) (*ImportResult, error) {
	if _, err := s.executionRepo.GetByID(ctx, runID); err != nil {
		return nil, fmt.Errorf("执行跟踪不存在: %w", err)
	}

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		// 第一行是表头
		if i == 0 {
			continue
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}

		line, err := s.executionRepo.GetOperationLine(ctx, row[0])
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 工序行 %s 不存在", i+1, row[0]))
			continue
		}
		if line.RunID != runID {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 工序行不属于该执行跟踪", i+1))
			continue
		}

		if v := cellAt(row, 7); v != "" {
			if d, err := strconv.ParseFloat(v, 64); err == nil {
				line.ActualDuration = d
			}
		}
		if v := cellAt(row, 8); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				line.WorkersAssigned = n
			}
		}
		if v := cellAt(row, 9); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				line.MachinesAssigned = n
			}
		}

		if err := s.executionRepo.UpdateOperationLine(ctx, line); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 保存失败", i+1))
			continue
		}
		result.Imported++
	}
	return result, nil
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
