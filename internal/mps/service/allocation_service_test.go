package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/testutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// preparePlannedPlan 把计划推进到 material_planned。sufficient=false 时制造M2缺口。
func preparePlannedPlan(t *testing.T, db *gorm.DB, svcs *Services, f *planFixture, sufficient bool) *entity.MaterialPlan {
	t.Helper()
	ctx := context.Background()

	testutil.SeedStock(t, db, f.M1.ID, 100, 0)
	if sufficient {
		testutil.SeedStock(t, db, f.M2.ID, 200, 0)
		testutil.SeedStock(t, db, f.C2.ID, 10, 0)
	} else {
		// 出库占用超过现有量，净可用 -30 → 缺口 90
		testutil.SeedStock(t, db, f.M2.ID, 10, 40)
		testutil.SeedStock(t, db, f.C2.ID, 10, 0)
	}

	plan := createTestPlan(t, svcs, f)
	if _, err := svcs.Planning.LoadComponents(ctx, plan.ID); err != nil {
		t.Fatalf("LoadComponents failed: %v", err)
	}
	plan, err := svcs.Planning.ComputeRequirements(ctx, plan.ID)
	if err != nil {
		t.Fatalf("ComputeRequirements failed: %v", err)
	}
	return plan
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	db.Model(&entity.ProductionOrder{}).Count(&count)
	return count
}

func TestAllocatePartialThenRemaining(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, true)
	ctx := context.Background()

	// 第一批 4/10
	result, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 4}, "test-user-001")
	if err != nil {
		t.Fatalf("First allocation failed: %v", err)
	}
	// 主产品订单 + 有BOM的部件订单；采购件不生成生产订单
	if len(result.Orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(result.Orders))
	}
	if result.Plan.Status != entity.PlanStatusWorkOrdersCreated {
		t.Errorf("Expected status work_orders_created, got %s", result.Plan.Status)
	}
	if got := result.Plan.RemainingQty(); got != 6 {
		t.Errorf("Expected remaining 6, got %v", got)
	}

	var frameOrder *entity.ProductionOrder
	for _, o := range result.Orders {
		if o.ProductID == f.C1.ID {
			frameOrder = o
		}
	}
	if frameOrder == nil {
		t.Fatal("Expected a frame component order")
	}
	// 20 × 4/10 = 8
	if frameOrder.Quantity != 8 {
		t.Errorf("Expected frame order quantity 8, got %v", frameOrder.Quantity)
	}
	if frameOrder.Origin != plan.Code {
		t.Errorf("Expected origin %s, got %s", plan.Code, frameOrder.Origin)
	}

	// 第二批恰好用完剩余量
	result2, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 6}, "test-user-001")
	if err != nil {
		t.Fatalf("Second allocation failed: %v", err)
	}
	if got := result2.Plan.RemainingQty(); got != 0 {
		t.Errorf("Expected remaining 0, got %v", got)
	}
	// 台账只追加：两批共4个订单
	if len(result2.Plan.ProductionOrders) != 4 {
		t.Errorf("Expected 4 ledger entries, got %d", len(result2.Plan.ProductionOrders))
	}

	// 超出剩余量被拒绝
	_, err = svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 1}, "test-user-001")
	var exceeded *QuantityExceedsRemainingError
	if !errors.As(err, &exceeded) {
		t.Fatalf("Expected QuantityExceedsRemainingError, got %v", err)
	}
	if exceeded.Remaining != 0 {
		t.Errorf("Expected remaining 0 in error, got %v", exceeded.Remaining)
	}
}

func TestAllocateMainOrderOnly(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, true)
	ctx := context.Background()

	off := false
	result, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{
		Quantity: 4, ProrateComponents: &off,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Allocation failed: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("Expected only the main order, got %d", len(result.Orders))
	}
	if result.Orders[0].ProductID != f.Product.ID {
		t.Errorf("Expected main product order, got product %s", result.Orders[0].ProductID)
	}
	if got := countOrders(t, db); got != 1 {
		t.Errorf("Expected 1 order persisted, got %d", got)
	}

	// 部件额度未被占用，后续等比批次仍可整量下达
	result, err = svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 6}, "test-user-001")
	if err != nil {
		t.Fatalf("Second allocation failed: %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("Expected main + component orders, got %d", len(result.Orders))
	}
	for _, o := range result.Orders {
		if o.ProductID == f.C1.ID && o.Quantity != 12 {
			t.Errorf("Expected prorated frame quantity 12, got %v", o.Quantity)
		}
	}
}

func TestAllocateExceedsPlannedQuantity(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, true)
	ctx := context.Background()

	before := countOrders(t, db)
	_, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 11}, "test-user-001")
	var exceeded *QuantityExceedsRemainingError
	if !errors.As(err, &exceeded) {
		t.Fatalf("Expected QuantityExceedsRemainingError, got %v", err)
	}
	if exceeded.Planned != 10 || exceeded.Remaining != 10 {
		t.Errorf("Unexpected error detail: planned=%v remaining=%v", exceeded.Planned, exceeded.Remaining)
	}
	// 失败不产生任何订单
	if after := countOrders(t, db); after != before {
		t.Errorf("Expected no orders created on failure, before=%d after=%d", before, after)
	}
}

func TestAllocateInvalidQuantity(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, true)

	_, err := svcs.Allocation.Allocate(context.Background(), plan.ID, AllocateRequest{Quantity: 0}, "test-user-001")
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("Expected ErrInvalidQuantity, got %v", err)
	}
	_, err = svcs.Allocation.Allocate(context.Background(), plan.ID, AllocateRequest{Quantity: -3}, "test-user-001")
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("Expected ErrInvalidQuantity for negative, got %v", err)
	}
}

func TestAllocateRequiresMaterialPlanned(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := createTestPlan(t, svcs, f) // draft

	_, err := svcs.Allocation.Allocate(context.Background(), plan.ID, AllocateRequest{Quantity: 1}, "test-user-001")
	var notReady *PlanNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("Expected PlanNotReadyError, got %v", err)
	}
}

func TestAllocateStrictBlocksOnShortage(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, false)
	ctx := context.Background()

	before := countOrders(t, db)
	_, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 2, Strict: true}, "test-user-001")
	var shortage *MaterialShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("Expected MaterialShortageError, got %v", err)
	}
	if len(shortage.Lines) == 0 {
		t.Error("Expected shortage lines in error")
	}
	if after := countOrders(t, db); after != before {
		t.Errorf("Expected no orders on strict shortage, before=%d after=%d", before, after)
	}

	// 非严格模式放行并携带告警
	result, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 2}, "test-user-001")
	if err != nil {
		t.Fatalf("Non-strict allocation failed: %v", err)
	}
	if len(result.ShortageWarnings) == 0 {
		t.Error("Expected shortage warnings on non-strict allocation")
	}
	if len(result.Orders) != 2 {
		t.Errorf("Expected 2 orders, got %d", len(result.Orders))
	}
}

func TestAllocateComponentQuotaGuard(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	plan := preparePlannedPlan(t, db, svcs, f, true)
	ctx := context.Background()

	if _, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 5}, "test-user-001"); err != nil {
		t.Fatalf("First allocation failed: %v", err)
	}

	// 模拟台账中的外部补录：给框架部件多挂一张订单，吃掉剩余额度
	extra := &entity.ProductionOrder{
		ID:        uuid.New().String(),
		Code:      "MO-EXTRA-001",
		ProductID: f.C1.ID,
		Quantity:  15,
		BOMID:     &f.BOM.ID,
		Origin:    plan.Code,
		Status:    entity.OrderStatusDraft,
		CreatedBy: "test-user-001",
	}
	if err := db.Create(extra).Error; err != nil {
		t.Fatalf("Failed to create extra order: %v", err)
	}
	if err := db.Exec("INSERT INTO mps_plan_production_orders (material_plan_id, production_order_id) VALUES (?, ?)",
		plan.ID, extra.ID).Error; err != nil {
		t.Fatalf("Failed to append extra order to ledger: %v", err)
	}

	before := countOrders(t, db)
	_, err := svcs.Allocation.Allocate(ctx, plan.ID, AllocateRequest{Quantity: 5}, "test-user-001")
	var quota *ComponentQuantityExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("Expected ComponentQuantityExceededError, got %v", err)
	}
	if quota.ComponentID != f.C1.ID {
		t.Errorf("Expected component %s in error, got %s", f.C1.ID, quota.ComponentID)
	}
	if quota.Allowed != 20 {
		t.Errorf("Expected allowed 20, got %v", quota.Allowed)
	}
	// 额度校验失败同样不产生订单
	if after := countOrders(t, db); after != before {
		t.Errorf("Expected no orders on quota failure, before=%d after=%d", before, after)
	}
}

func TestAllocatePlanNotFound(t *testing.T) {
	_, svcs := setupServiceTest(t)
	_, err := svcs.Allocation.Allocate(context.Background(), "no-such-plan", AllocateRequest{Quantity: 1}, "test-user-001")
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("Expected ErrPlanNotFound, got %v", err)
	}
}
