package entity

import (
	"testing"
)

func TestAdditionalCodeFromSpecs(t *testing.T) {
	specs := []SpecificationValue{
		{SpecificationName: "表面处理", Value: "喷塑", Sequence: 20},
		{SpecificationName: "材质", Value: "Q235", Sequence: 10},
		{SpecificationName: "备注项", Value: "", Sequence: 30}, // 空值跳过
	}
	got := AdditionalCodeFromSpecs(specs)
	want := "材质: Q235\n表面处理: 喷塑"
	if got != want {
		t.Errorf("AdditionalCodeFromSpecs = %q, want %q", got, want)
	}
}

func TestAdditionalCodeFromSpecsEmpty(t *testing.T) {
	if got := AdditionalCodeFromSpecs(nil); got != "" {
		t.Errorf("Expected empty code for no specs, got %q", got)
	}
	if got := AdditionalCodeFromSpecs([]SpecificationValue{{SpecificationName: "材质", Value: ""}}); got != "" {
		t.Errorf("Expected empty code for all-empty values, got %q", got)
	}
}

func TestSpecSnapshotOrdering(t *testing.T) {
	specs := []SpecificationValue{
		{SpecificationName: "B", Value: "2", Sequence: 20},
		{SpecificationName: "A", Value: "1", Sequence: 10},
	}
	snap := SpecSnapshot(specs)
	if len(snap) != 2 {
		t.Fatalf("Expected 2 snapshot items, got %d", len(snap))
	}
	if snap[0].Name != "A" || snap[1].Name != "B" {
		t.Errorf("Expected snapshot ordered by sequence, got %s / %s", snap[0].Name, snap[1].Name)
	}
}

func TestTotalComponentCost(t *testing.T) {
	p := Pricing{Components: []PricingComponent{
		{Quantity: 2, CostPrice: 100},
		{Quantity: 5, CostPrice: 10},
	}}
	if got := p.TotalComponentCost(); got != 250 {
		t.Errorf("TotalComponentCost = %v, want 250", got)
	}
}

func TestPlanRemainingQty(t *testing.T) {
	plan := MaterialPlan{
		ID: "plan-1", ProductID: "prod-1", Quantity: 10,
		ProductionOrders: []ProductionOrder{
			{ProductID: "prod-1", Quantity: 4},
			{ProductID: "prod-1", Quantity: 3},
			{ProductID: "comp-1", Quantity: 14}, // 部件订单不计入主产品产量
		},
	}
	if got := plan.ProducedQty(); got != 7 {
		t.Errorf("ProducedQty = %v, want 7", got)
	}
	if got := plan.RemainingQty(); got != 3 {
		t.Errorf("RemainingQty = %v, want 3", got)
	}

	plan.ProductionOrders = append(plan.ProductionOrders, ProductionOrder{ProductID: "prod-1", Quantity: 5})
	if got := plan.RemainingQty(); got != 0 {
		t.Errorf("RemainingQty clamps at 0, got %v", got)
	}
}

func TestLineProgressAndCurrentOperation(t *testing.T) {
	if got := LineProgress(nil); got != 0 {
		t.Errorf("Expected 0 progress for no operations, got %v", got)
	}
	if got := CurrentOperation(nil); got != CurrentOpNoOperations {
		t.Errorf("Expected %s, got %s", CurrentOpNoOperations, got)
	}

	ops := []OperationLine{
		{Name: "切割", Status: OpStatusDone},
		{Name: "焊接", Status: OpStatusReady},
		{Name: "喷塑", Status: OpStatusPending},
	}
	if got := LineProgress(ops); got < 33.3 || got > 33.4 {
		t.Errorf("Expected progress ≈33.3, got %v", got)
	}
	if got := CurrentOperation(ops); got != "焊接" {
		t.Errorf("Expected current operation 焊接, got %s", got)
	}

	for i := range ops {
		ops[i].Status = OpStatusDone
	}
	if got := CurrentOperation(ops); got != CurrentOpAllDone {
		t.Errorf("Expected %s, got %s", CurrentOpAllDone, got)
	}

	for i := range ops {
		ops[i].Status = OpStatusPending
	}
	if got := CurrentOperation(ops); got != CurrentOpNotStarted {
		t.Errorf("Expected %s, got %s", CurrentOpNotStarted, got)
	}
}

func TestLineStatus(t *testing.T) {
	if got := LineStatus(nil); got != LineStatusNotStarted {
		t.Errorf("Expected %s for no operations, got %s", LineStatusNotStarted, got)
	}

	ops := []OperationLine{
		{Name: "切割", Status: OpStatusReady},
		{Name: "焊接", Status: OpStatusPending},
	}
	if got := LineStatus(ops); got != LineStatusNotStarted {
		t.Errorf("Expected %s before any start, got %s", LineStatusNotStarted, got)
	}

	ops[0].Status = OpStatusProgress
	if got := LineStatus(ops); got != LineStatusInProgress {
		t.Errorf("Expected %s, got %s", LineStatusInProgress, got)
	}

	ops[0].Status = OpStatusDone
	ops[1].Status = OpStatusCancel
	if got := LineStatus(ops); got != LineStatusCompleted {
		t.Errorf("Expected %s when all operations ended, got %s", LineStatusCompleted, got)
	}
}

func TestSpecListScan(t *testing.T) {
	var s SpecList
	if err := s.Scan([]byte(`[{"name":"材质","value":"Q235"}]`)); err != nil {
		t.Fatalf("Scan bytes failed: %v", err)
	}
	if len(s) != 1 || s[0].Name != "材质" {
		t.Errorf("Unexpected scan result: %+v", s)
	}

	if err := s.Scan(nil); err != nil {
		t.Errorf("Scan nil failed: %v", err)
	}
	if s != nil {
		t.Errorf("Expected nil list after scanning NULL, got %+v", s)
	}

	if err := s.Scan(12345); err == nil {
		t.Error("Expected error for unsupported column type, got nil")
	}
}
