package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
)

func TestRequisitionFromShortage(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	// M2 净可用 -30 → 缺口90；其余充足
	plan := preparePlannedPlan(t, db, svcs, f, false)
	ctx := context.Background()

	requisition, err := svcs.Requisition.CreateFromPlan(ctx, plan.ID, CreateFromPlanRequest{
		SupplierName: "深圳华强供应链",
	}, "test-user-001")
	if err != nil {
		t.Fatalf("CreateFromPlan failed: %v", err)
	}
	if requisition.Status != entity.RequisitionStatusDraft {
		t.Errorf("Expected status draft, got %s", requisition.Status)
	}
	if len(requisition.Lines) != 1 {
		t.Fatalf("Expected 1 shortage line, got %d", len(requisition.Lines))
	}
	line := requisition.Lines[0]
	if line.MaterialID != f.M2.ID || line.Quantity != 90 {
		t.Errorf("Unexpected line: material=%s qty=%v", line.MaterialID, line.Quantity)
	}
	// 单价取物料标准成本
	if line.UnitPrice != 2 {
		t.Errorf("Expected unit price 2, got %v", line.UnitPrice)
	}

	// 确认后需求行转为已订购
	if _, err := svcs.Requisition.Confirm(ctx, requisition.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	var reqLine entity.MaterialRequirementLine
	if err := db.Where("plan_id = ? AND material_id = ?", plan.ID, f.M2.ID).First(&reqLine).Error; err != nil {
		t.Fatalf("Failed to read requirement line: %v", err)
	}
	if reqLine.Status != entity.RequirementStatusOrdered {
		t.Errorf("Expected requirement status ordered, got %s", reqLine.Status)
	}

	// 收货入库并转为已收货
	if _, err := svcs.Requisition.Receive(ctx, requisition.ID); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	var stock entity.Stock
	if err := db.Where("material_id = ?", f.M2.ID).First(&stock).Error; err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	if stock.OnHandQty != 100 { // 10 + 90
		t.Errorf("Expected on-hand 100 after receiving, got %v", stock.OnHandQty)
	}
	if err := db.Where("plan_id = ? AND material_id = ?", plan.ID, f.M2.ID).First(&reqLine).Error; err != nil {
		t.Fatalf("Failed to reread requirement line: %v", err)
	}
	if reqLine.Status != entity.RequirementStatusReceived {
		t.Errorf("Expected requirement status received, got %s", reqLine.Status)
	}
}

func TestRequisitionNoShortage(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, true)

	_, err := svcs.Requisition.CreateFromPlan(context.Background(), plan.ID, CreateFromPlanRequest{}, "test-user-001")
	if !errors.Is(err, ErrNoShortage) {
		t.Fatalf("Expected ErrNoShortage, got %v", err)
	}
}

func TestRequisitionRequiresPlannedState(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := createTestPlan(t, svcs, f)

	_, err := svcs.Requisition.CreateFromPlan(context.Background(), plan.ID, CreateFromPlanRequest{}, "test-user-001")
	var notReady *PlanNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("Expected PlanNotReadyError, got %v", err)
	}
}
