package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/repository"
	"github.com/bitfantasy/nimo-mps/internal/mps/testutil"
	"gorm.io/gorm"
)

func setupServiceTest(t *testing.T) (*gorm.DB, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svcs := NewServices(repos, db, nil, testutil.TestLogger())
	return db, svcs
}

// planFixture 一套完整的计划前置数据：
// 成品P，部件C1（有BOM：M1×2 + M2×3，两道工序）、C2（采购件无BOM），
// 已确认定价版本：计划量10，C1×20、C2×5。
type planFixture struct {
	Project *entity.Project
	Product *entity.Product
	C1, C2  *entity.Product
	M1, M2  *entity.Product
	BOM     *entity.BOMHeader
	Pricing *entity.Pricing
}

func seedPlanFixture(t *testing.T, db *gorm.DB, svcs *Services) *planFixture {
	t.Helper()
	ctx := context.Background()

	f := &planFixture{
		Project: testutil.SeedProject(t, db, "屏蔽柜试产项目"),
		Product: testutil.SeedProduct(t, db, "FG-CAB-01", "屏蔽柜成品", 0),
		C1:      testutil.SeedProduct(t, db, "CP-FRAME-01", "柜体框架", 120),
		C2:      testutil.SeedProduct(t, db, "CP-LOCK-01", "锁具", 35),
		M1:      testutil.SeedProduct(t, db, "RM-STEEL-01", "冷轧钢板", 8),
		M2:      testutil.SeedProduct(t, db, "RM-SEAL-01", "屏蔽密封条", 2),
	}
	// 单重决定执行行重量：重量 = 单重 × 订单数量
	for id, w := range map[string]float64{f.Product.ID: 50, f.C1.ID: 20} {
		if err := db.Model(&entity.Product{}).Where("id = ?", id).
			Update("unit_weight", w).Error; err != nil {
			t.Fatalf("Failed to set unit weight: %v", err)
		}
	}

	f.BOM = testutil.SeedBOM(t, db, f.C1.ID,
		[]testutil.BOMItemSpec{
			{MaterialID: f.M1.ID, QtyPerUnit: 2},
			{MaterialID: f.M2.ID, QtyPerUnit: 3},
		},
		[]testutil.RoutingSpec{
			{Name: "切割", WorkCenterID: "wc-cut", DurationMinutes: 30},
			{Name: "焊接", WorkCenterID: "wc-weld", DurationMinutes: 45},
		})

	pricing, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: f.Project.ID,
		ProductID: f.Product.ID,
		Quantity:  10,
		Weight:    500,
		Components: []CreatePricingComponentReq{
			{ComponentID: f.C1.ID, Quantity: 20, Weight: 400, CostPrice: 120,
				Specs: []SpecValueReq{
					{SpecificationID: "spec-mat", SpecificationName: "材质", Value: "Q235"},
					{SpecificationID: "spec-coat", SpecificationName: "表面处理", Value: "喷塑"},
				}},
			{ComponentID: f.C2.ID, Quantity: 5, CostPrice: 35},
		},
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Failed to create pricing: %v", err)
	}
	if _, err := svcs.Pricing.Confirm(ctx, pricing.ID); err != nil {
		t.Fatalf("Failed to confirm pricing: %v", err)
	}
	f.Pricing = pricing
	return f
}

func createTestPlan(t *testing.T, svcs *Services, f *planFixture) *entity.MaterialPlan {
	t.Helper()
	plan, err := svcs.Planning.Create(context.Background(), CreatePlanRequest{
		ProjectID: f.Project.ID,
		ProductID: f.Product.ID,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}
	return plan
}

func TestPlanCreateMirrorsPricing(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)

	plan := createTestPlan(t, svcs, f)
	if plan.Status != entity.PlanStatusDraft {
		t.Errorf("Expected status draft, got %s", plan.Status)
	}
	if plan.Quantity != 10 {
		t.Errorf("Expected quantity 10 from pricing, got %v", plan.Quantity)
	}
	if plan.PricingID == nil || *plan.PricingID != f.Pricing.ID {
		t.Errorf("Expected pricing reference %s, got %v", f.Pricing.ID, plan.PricingID)
	}
}

func TestLoadComponentsFreezesPricing(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	plan := createTestPlan(t, svcs, f)
	plan, err := svcs.Planning.LoadComponents(ctx, plan.ID)
	if err != nil {
		t.Fatalf("LoadComponents failed: %v", err)
	}
	if plan.Status != entity.PlanStatusComponentsLoaded {
		t.Errorf("Expected status components_loaded, got %s", plan.Status)
	}
	if len(plan.Components) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(plan.Components))
	}

	var frame *entity.PlanningComponent
	for i := range plan.Components {
		if plan.Components[i].ComponentID == f.C1.ID {
			frame = &plan.Components[i]
		}
	}
	if frame == nil {
		t.Fatal("Frame component not copied")
	}
	if frame.Quantity != 20 {
		t.Errorf("Expected frame quantity 20, got %v", frame.Quantity)
	}
	if frame.BOMID == nil || *frame.BOMID != f.BOM.ID {
		t.Errorf("Expected frame BOM reference %s, got %v", f.BOM.ID, frame.BOMID)
	}
	if len(frame.Specifications) != 2 {
		t.Errorf("Expected 2 frozen specs, got %d", len(frame.Specifications))
	}
	if frame.AdditionalCode != "材质: Q235\n表面处理: 喷塑" {
		t.Errorf("Unexpected additional code: %q", frame.AdditionalCode)
	}

	// 重复加载整表替换，不叠加
	plan, err = svcs.Planning.LoadComponents(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(plan.Components) != 2 {
		t.Errorf("Expected 2 components after reload, got %d", len(plan.Components))
	}
}

func TestComputeRequirementsExplodesBOMAndNetsStock(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	// M1 净可用 70，M2 净可用 -30（出库占用超过现有量，负值如实下传）
	testutil.SeedStock(t, db, f.M1.ID, 100, 30)
	testutil.SeedStock(t, db, f.M2.ID, 10, 40)

	plan := createTestPlan(t, svcs, f)
	if _, err := svcs.Planning.LoadComponents(ctx, plan.ID); err != nil {
		t.Fatalf("LoadComponents failed: %v", err)
	}
	plan, err := svcs.Planning.ComputeRequirements(ctx, plan.ID)
	if err != nil {
		t.Fatalf("ComputeRequirements failed: %v", err)
	}
	if plan.Status != entity.PlanStatusMaterialPlanned {
		t.Errorf("Expected status material_planned, got %s", plan.Status)
	}
	// C1 展开两行 + C2 采购件一行
	if len(plan.Requirements) != 3 {
		t.Fatalf("Expected 3 requirement lines, got %d", len(plan.Requirements))
	}

	byMaterial := make(map[string]entity.MaterialRequirementLine)
	for _, line := range plan.Requirements {
		byMaterial[line.MaterialID] = line
	}

	m1 := byMaterial[f.M1.ID]
	if m1.RequiredQty != 40 { // 2 × 20
		t.Errorf("Expected M1 required 40, got %v", m1.RequiredQty)
	}
	if m1.AvailableQty != 70 || m1.ShortageQty != 0 || m1.Status != entity.RequirementStatusSufficient {
		t.Errorf("Unexpected M1 line: avail=%v shortage=%v status=%s", m1.AvailableQty, m1.ShortageQty, m1.Status)
	}

	m2 := byMaterial[f.M2.ID]
	if m2.RequiredQty != 60 { // 3 × 20
		t.Errorf("Expected M2 required 60, got %v", m2.RequiredQty)
	}
	if m2.AvailableQty != -30 {
		t.Errorf("Expected M2 available -30, got %v", m2.AvailableQty)
	}
	if m2.ShortageQty != 90 || m2.Status != entity.RequirementStatusShortage {
		t.Errorf("Unexpected M2 line: shortage=%v status=%s", m2.ShortageQty, m2.Status)
	}

	// 采购件：需求即部件本身，无库存行按0可用
	lock := byMaterial[f.C2.ID]
	if lock.RequiredQty != 5 || lock.AvailableQty != 0 || lock.ShortageQty != 5 {
		t.Errorf("Unexpected purchase part line: required=%v avail=%v shortage=%v",
			lock.RequiredQty, lock.AvailableQty, lock.ShortageQty)
	}
	if lock.Status != entity.RequirementStatusShortage {
		t.Errorf("Expected purchase part status shortage, got %s", lock.Status)
	}
}

func TestComputeRequirementsPartialStatus(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	// M1 净可用 30 < 需求 40 且 > 0 → partial
	testutil.SeedStock(t, db, f.M1.ID, 50, 20)
	testutil.SeedStock(t, db, f.M2.ID, 200, 0)

	plan := createTestPlan(t, svcs, f)
	if _, err := svcs.Planning.LoadComponents(ctx, plan.ID); err != nil {
		t.Fatalf("LoadComponents failed: %v", err)
	}
	plan, err := svcs.Planning.ComputeRequirements(ctx, plan.ID)
	if err != nil {
		t.Fatalf("ComputeRequirements failed: %v", err)
	}

	for _, line := range plan.Requirements {
		if line.MaterialID != f.M1.ID {
			continue
		}
		if line.Status != entity.RequirementStatusPartial {
			t.Errorf("Expected M1 status partial, got %s", line.Status)
		}
		if line.ShortageQty != 10 {
			t.Errorf("Expected M1 shortage 10, got %v", line.ShortageQty)
		}
	}
}

func TestComputeRequirementsIdempotent(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	testutil.SeedStock(t, db, f.M1.ID, 100, 0)
	testutil.SeedStock(t, db, f.M2.ID, 100, 0)

	plan := createTestPlan(t, svcs, f)
	if _, err := svcs.Planning.LoadComponents(ctx, plan.ID); err != nil {
		t.Fatalf("LoadComponents failed: %v", err)
	}
	if _, err := svcs.Planning.ComputeRequirements(ctx, plan.ID); err != nil {
		t.Fatalf("First compute failed: %v", err)
	}
	plan, err := svcs.Planning.ComputeRequirements(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Second compute failed: %v", err)
	}
	if len(plan.Requirements) != 3 {
		t.Errorf("Expected 3 requirement lines after recompute, got %d", len(plan.Requirements))
	}

	var count int64
	db.Model(&entity.MaterialRequirementLine{}).Where("plan_id = ?", plan.ID).Count(&count)
	if count != 3 {
		t.Errorf("Expected 3 persisted lines, got %d", count)
	}
}

func TestComputeRequirementsRequiresLoadedComponents(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	plan := createTestPlan(t, svcs, f)
	_, err := svcs.Planning.ComputeRequirements(ctx, plan.ID)
	var notReady *PlanNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("Expected PlanNotReadyError for draft plan, got %v", err)
	}
	if notReady.Status != entity.PlanStatusDraft {
		t.Errorf("Expected error status draft, got %s", notReady.Status)
	}
}

func TestPlanNotFound(t *testing.T) {
	_, svcs := setupServiceTest(t)
	_, err := svcs.Planning.GetByID(context.Background(), "no-such-plan")
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("Expected ErrPlanNotFound, got %v", err)
	}
}

func TestPlanCancelFromNonTerminal(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	plan := createTestPlan(t, svcs, f)
	plan, err := svcs.Planning.Cancel(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if plan.Status != entity.PlanStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", plan.Status)
	}

	// 终态不允许再取消
	if _, err := svcs.Planning.Cancel(ctx, plan.ID); err == nil {
		t.Error("Expected error cancelling a terminal plan")
	}
}
