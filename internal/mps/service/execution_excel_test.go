package service

import (
	"context"
	"strconv"
	"testing"
)

func TestExportAndImportActuals(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	_, run := prepareAllocatedRun(t, db, svcs, f)
	ctx := context.Background()

	if _, err := svcs.Execution.Load(ctx, run.ID); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	file, filename, err := svcs.Execution.ExportOperations(ctx, run.ID)
	if err != nil {
		t.Fatalf("ExportOperations failed: %v", err)
	}
	if filename != "operations_"+run.Code+".xlsx" {
		t.Errorf("Unexpected filename: %s", filename)
	}

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		t.Fatalf("Failed to read exported sheet: %v", err)
	}
	// 表头 + 两道工序
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "工序行ID" || rows[0][2] != "工序" {
		t.Errorf("Unexpected headers: %v", rows[0])
	}
	if rows[1][2] != "切割" || rows[2][2] != "焊接" {
		t.Errorf("Unexpected operation names: %s / %s", rows[1][2], rows[2][2])
	}

	// 在导出文件上补录实际数据后回导
	lineID := rows[1][0]
	file.SetCellValue(sheet, "H2", 95.5)
	file.SetCellValue(sheet, "I2", 3)
	file.SetCellValue(sheet, "J2", 2)

	result, err := svcs.Execution.ImportActuals(ctx, run.ID, file)
	if err != nil {
		t.Fatalf("ImportActuals failed: %v", err)
	}
	if result.Imported != 2 || result.Failed != 0 {
		t.Errorf("Unexpected import result: imported=%d failed=%d errors=%v",
			result.Imported, result.Failed, result.Errors)
	}

	line, err := svcs.Execution.UpdateOperationLine(ctx, lineID, UpdateOperationLineRequest{})
	if err != nil {
		t.Fatalf("Failed to read line back: %v", err)
	}
	if line.ActualDuration != 95.5 {
		t.Errorf("Expected actual duration 95.5, got %v", line.ActualDuration)
	}
	if line.WorkersAssigned != 3 || line.MachinesAssigned != 2 {
		t.Errorf("Expected staffing 3/2, got %d/%d", line.WorkersAssigned, line.MachinesAssigned)
	}
}

func TestImportActualsRejectsForeignLines(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	_, run := prepareAllocatedRun(t, db, svcs, f)
	ctx := context.Background()

	if _, err := svcs.Execution.Load(ctx, run.ID); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	file, _, err := svcs.Execution.ExportOperations(ctx, run.ID)
	if err != nil {
		t.Fatalf("ExportOperations failed: %v", err)
	}

	// 伪造一行不存在的工序行ID
	sheet := file.GetSheetName(0)
	file.SetCellValue(sheet, "A"+strconv.Itoa(4), "no-such-line")
	file.SetCellValue(sheet, "H4", 10)

	result, err := svcs.Execution.ImportActuals(ctx, run.ID, file)
	if err != nil {
		t.Fatalf("ImportActuals failed: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failed row, got %d", result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error message, got %v", result.Errors)
	}
}
