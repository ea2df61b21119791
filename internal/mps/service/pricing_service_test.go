package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/bitfantasy/nimo-mps/internal/mps/testutil"
)

func TestPricingVersionIncrements(t *testing.T) {
	db, svcs := setupServiceTest(t)
	ctx := context.Background()

	project := testutil.SeedProject(t, db, "版本号测试项目")
	product := testutil.SeedProduct(t, db, "FG-VER-01", "版本测试产品", 0)

	p1, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: project.ID, ProductID: product.ID, Quantity: 5,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("First pricing failed: %v", err)
	}
	if p1.Version != 1 {
		t.Errorf("Expected version 1, got %d", p1.Version)
	}

	p2, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: project.ID, ProductID: product.ID, Quantity: 8,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Second pricing failed: %v", err)
	}
	if p2.Version != 2 {
		t.Errorf("Expected version 2, got %d", p2.Version)
	}

	// 旧版本不被改写
	old, err := svcs.Pricing.GetByID(ctx, p1.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if old.Quantity != 5 {
		t.Errorf("Expected old version quantity 5, got %v", old.Quantity)
	}
}

func TestPricingCreateResolvesBOMAndCode(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	pricing, err := svcs.Pricing.GetByID(ctx, f.Pricing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(pricing.Components) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(pricing.Components))
	}
	for _, comp := range pricing.Components {
		switch comp.ComponentID {
		case f.C1.ID:
			if comp.BOMID == nil || *comp.BOMID != f.BOM.ID {
				t.Errorf("Expected released BOM resolved for frame, got %v", comp.BOMID)
			}
			if comp.AdditionalCode != "材质: Q235\n表面处理: 喷塑" {
				t.Errorf("Unexpected additional code: %q", comp.AdditionalCode)
			}
		case f.C2.ID:
			if comp.BOMID != nil {
				t.Errorf("Expected no BOM for purchase part, got %v", *comp.BOMID)
			}
		}
	}
}

func TestPricingConfirmMirrorsProjectLine(t *testing.T) {
	db, svcs := setupServiceTest(t)
	ctx := context.Background()

	project := testutil.SeedProject(t, db, "回写测试项目")
	product := testutil.SeedProduct(t, db, "FG-MIRROR-01", "回写测试产品", 0)
	comp := testutil.SeedProduct(t, db, "CP-MIRROR-01", "回写部件", 50)

	line := &entity.ProjectProductLine{
		ID: "line-mirror-001", ProjectID: project.ID, Sequence: 10,
		ProductID: product.ID, Quantity: 1,
	}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("Failed to seed product line: %v", err)
	}

	pricing, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: project.ID, ProductID: product.ID, Quantity: 6, Weight: 300,
		Components: []CreatePricingComponentReq{
			{ComponentID: comp.ID, Quantity: 12, CostPrice: 50},
		},
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Create pricing failed: %v", err)
	}
	if _, err := svcs.Pricing.Confirm(ctx, pricing.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	var updated entity.ProjectProductLine
	if err := db.First(&updated, "id = ?", line.ID).Error; err != nil {
		t.Fatalf("Failed to read product line: %v", err)
	}
	if updated.Quantity != 6 || updated.Weight != 300 {
		t.Errorf("Expected mirrored quantity/weight 6/300, got %v/%v", updated.Quantity, updated.Weight)
	}
	if updated.CostPrice != 600 { // 12 × 50
		t.Errorf("Expected mirrored cost 600, got %v", updated.CostPrice)
	}

	// 已确认版本不允许重复确认
	if _, err := svcs.Pricing.Confirm(ctx, pricing.ID); err == nil {
		t.Error("Expected error confirming twice")
	}
}

func TestSaveComponentSpecsRecomputesCode(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	pricing, err := svcs.Pricing.GetByID(ctx, f.Pricing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	var frameComp *entity.PricingComponent
	for i := range pricing.Components {
		if pricing.Components[i].ComponentID == f.C1.ID {
			frameComp = &pricing.Components[i]
		}
	}
	if frameComp == nil {
		t.Fatal("Frame component not found")
	}

	updated, err := svcs.Pricing.SaveComponentSpecs(ctx, frameComp.ID, []SpecValueReq{
		{SpecificationID: "spec-mat", SpecificationName: "材质", Value: "SUS304"},
		{SpecificationID: "spec-thick", SpecificationName: "板厚", Value: "2mm"},
	})
	if err != nil {
		t.Fatalf("SaveComponentSpecs failed: %v", err)
	}
	if updated.AdditionalCode != "材质: SUS304\n板厚: 2mm" {
		t.Errorf("Unexpected recomputed code: %q", updated.AdditionalCode)
	}
	if len(updated.Specifications) != 2 {
		t.Errorf("Expected 2 specs after replace, got %d", len(updated.Specifications))
	}
}

func TestPricingCreateNewVersionCopiesLines(t *testing.T) {
	db, svcs := setupServiceTest(t)
	f := seedPlanFixture(t, db, svcs)
	ctx := context.Background()

	copied, err := svcs.Pricing.CreateNewVersion(ctx, f.Pricing.ID, "test-user-002")
	if err != nil {
		t.Fatalf("CreateNewVersion failed: %v", err)
	}
	if copied.Version != f.Pricing.Version+1 {
		t.Errorf("Expected version %d, got %d", f.Pricing.Version+1, copied.Version)
	}
	if copied.Status != entity.PricingStatusDraft {
		t.Errorf("Expected draft copy, got %s", copied.Status)
	}
	if copied.ID == f.Pricing.ID || copied.Code == f.Pricing.Code {
		t.Error("Expected copy to get its own id and code")
	}
	if len(copied.Components) != 2 {
		t.Fatalf("Expected 2 copied components, got %d", len(copied.Components))
	}
	for _, comp := range copied.Components {
		if comp.ComponentID != f.C1.ID {
			continue
		}
		if comp.BOMID == nil || *comp.BOMID != f.BOM.ID {
			t.Errorf("Expected BOM reference carried over, got %v", comp.BOMID)
		}
		if comp.AdditionalCode != "材质: Q235\n表面处理: 喷塑" {
			t.Errorf("Unexpected copied additional code: %q", comp.AdditionalCode)
		}
		if len(comp.Specifications) != 2 {
			t.Errorf("Expected 2 copied specs, got %d", len(comp.Specifications))
		}
	}

	// 源版本保持原样
	source, err := svcs.Pricing.GetByID(ctx, f.Pricing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if source.Status != entity.PricingStatusConfirmed {
		t.Errorf("Expected source still confirmed, got %s", source.Status)
	}
	if len(source.Components) != 2 {
		t.Errorf("Expected source components untouched, got %d", len(source.Components))
	}
}

func TestPricingResetToDraft(t *testing.T) {
	db, svcs := setupServiceTest(t)
	ctx := context.Background()

	project := testutil.SeedProject(t, db, "退回草稿测试项目")
	product := testutil.SeedProduct(t, db, "FG-RESET-01", "退回测试产品", 0)

	pricing, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: project.ID, ProductID: product.ID, Quantity: 2,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Create pricing failed: %v", err)
	}

	// 未取消的版本不允许退回
	if _, err := svcs.Pricing.ResetToDraft(ctx, pricing.ID); err == nil {
		t.Error("Expected error resetting a draft pricing")
	}

	if _, err := svcs.Pricing.Cancel(ctx, pricing.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	reset, err := svcs.Pricing.ResetToDraft(ctx, pricing.ID)
	if err != nil {
		t.Fatalf("ResetToDraft failed: %v", err)
	}
	if reset.Status != entity.PricingStatusDraft {
		t.Errorf("Expected status draft, got %s", reset.Status)
	}
}

func TestPricingApproveFlow(t *testing.T) {
	db, svcs := setupServiceTest(t)
	ctx := context.Background()

	project := testutil.SeedProject(t, db, "审批流测试项目")
	product := testutil.SeedProduct(t, db, "FG-APPR-01", "审批测试产品", 0)

	pricing, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: project.ID, ProductID: product.ID, Quantity: 3,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Create pricing failed: %v", err)
	}

	// 草稿不能直接审批
	if _, err := svcs.Pricing.Approve(ctx, pricing.ID); err == nil {
		t.Error("Expected error approving a draft pricing")
	}

	if _, err := svcs.Pricing.Confirm(ctx, pricing.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	approved, err := svcs.Pricing.Approve(ctx, pricing.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != entity.PricingStatusApproved {
		t.Errorf("Expected status approved, got %s", approved.Status)
	}
}
