package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
)

func TestMaterialUsageReport(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, false)
	ctx := context.Background()

	report, err := svcs.Report.MaterialUsage(ctx, plan.ID)
	if err != nil {
		t.Fatalf("MaterialUsage failed: %v", err)
	}
	if report.PlanCode != plan.Code {
		t.Errorf("Expected plan code %s, got %s", plan.Code, report.PlanCode)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("Expected 3 material rows, got %d", len(report.Rows))
	}

	byMaterial := make(map[string]MaterialUsageRow)
	for _, row := range report.Rows {
		byMaterial[row.MaterialID] = row
	}
	m2 := byMaterial[f.M2.ID]
	if m2.MaterialCode != "RM-SEAL-01" || m2.MaterialName != "屏蔽密封条" {
		t.Errorf("Expected material enrichment, got code=%s name=%s", m2.MaterialCode, m2.MaterialName)
	}
	if m2.ShortageQty != 90 || m2.Status != entity.RequirementStatusShortage {
		t.Errorf("Unexpected M2 row: shortage=%v status=%s", m2.ShortageQty, m2.Status)
	}
	m1 := byMaterial[f.M1.ID]
	if m1.Status != entity.RequirementStatusSufficient {
		t.Errorf("Expected M1 sufficient, got %s", m1.Status)
	}
}

func TestMaterialUsageReportPlanNotFound(t *testing.T) {
	_, svcs := setupServiceTest(t)
	_, err := svcs.Report.MaterialUsage(context.Background(), "no-such-plan")
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("Expected ErrPlanNotFound, got %v", err)
	}
}

func TestProgressReport(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	_, run := prepareAllocatedRun(t, db, svcs, f)
	ctx := context.Background()

	detail, err := svcs.Execution.Load(ctx, run.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	frame := findLineDetail(t, detail, f.C1.ID)
	if _, err := svcs.Execution.StartOperationLine(ctx, frame.OperationLines[0].ID); err != nil {
		t.Fatalf("StartOperationLine failed: %v", err)
	}
	if _, err := svcs.Execution.CompleteOperationLine(ctx, frame.OperationLines[0].ID, CompleteOperationLineRequest{
		QtyProduced: 20, DurationReal: 30,
	}); err != nil {
		t.Fatalf("CompleteOperationLine failed: %v", err)
	}

	report, err := svcs.Report.Progress(ctx, run.ID)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if report.RunCode != run.Code {
		t.Errorf("Expected run code %s, got %s", run.Code, report.RunCode)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(report.Rows))
	}
	if report.Progress != 50 {
		t.Errorf("Expected overall progress 50, got %v", report.Progress)
	}

	for _, row := range report.Rows {
		if row.ComponentID == f.C1.ID {
			if row.Progress != 50 || row.CurrentOperation != "焊接" {
				t.Errorf("Unexpected frame row: progress=%v current=%s", row.Progress, row.CurrentOperation)
			}
			if row.Status != entity.LineStatusInProgress {
				t.Errorf("Expected frame row in_progress, got %s", row.Status)
			}
			if row.ComponentCode != "CP-FRAME-01" {
				t.Errorf("Expected component enrichment, got %s", row.ComponentCode)
			}
		} else if row.Status != entity.LineStatusNotStarted {
			t.Errorf("Expected untouched row not_started, got %s", row.Status)
		}
	}
}
