package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/mps/testutil"
)

func TestBusinessCodesAreSequential(t *testing.T) {
	db, svcs := setupServiceTest(t)
	ctx := context.Background()

	p1, err := svcs.Project.Create(ctx, CreateProjectRequest{
		Name: "单号项目一", StartDate: "2026-01-01", EndDate: "2026-06-30",
	}, "test-user-001")
	if err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	p2, err := svcs.Project.Create(ctx, CreateProjectRequest{
		Name: "单号项目二", StartDate: "2026-01-01", EndDate: "2026-06-30",
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Second create failed: %v", err)
	}

	prefix := "PRJ-" + time.Now().Format("20060102")
	if !strings.HasPrefix(p1.Code, prefix) || !strings.HasPrefix(p2.Code, prefix) {
		t.Fatalf("Unexpected code format: %s / %s", p1.Code, p2.Code)
	}
	if p1.Code[len(prefix):] != "0001" || p2.Code[len(prefix):] != "0002" {
		t.Errorf("Expected counter 0001 then 0002, got %s / %s", p1.Code, p2.Code)
	}

	// 不同前缀各自独立计数
	product := testutil.SeedProduct(t, db, "FG-CODE-01", "单号测试产品", 0)
	pricing, err := svcs.Pricing.Create(ctx, CreatePricingRequest{
		ProjectID: p1.ID,
		ProductID: product.ID,
		Quantity:  1,
	}, "test-user-001")
	if err != nil {
		t.Fatalf("Create pricing failed: %v", err)
	}
	if !strings.HasSuffix(pricing.Code, "0001") {
		t.Errorf("Expected independent PC counter starting at 0001, got %s", pricing.Code)
	}
}
