//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "uniform-orders-api"
	ConsumerName = "front-desk"

	StateStockDefined = "stock for garment 1 size 10 is defined"
	StateStockMissing = "no stock record for garment 1 size 99"
	StateCatalogReady = "catalog and stock are seeded"
	StateNoOrders     = "no orders exist"
)

const (
	GarmentID      int64 = 1
	SizeID         int64 = 10
	MissingSizeID  int64 = 99
	StudentID      int64 = 7
	StudentName          = "Ana Torres"
	OnHand               = 5
	Threshold            = 2
	RetailPrice          = "125"
	WholesalePrice       = "100"

	MissingOrderID = "3f8a3a0e-4f5d-4d59-9c55-2b0b9a1d7e11"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the front desk consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleOrderRequest is the create-order payload used by the front desk.
func ExampleOrderRequest() map[string]any {
	return map[string]any{
		"clientKind": "student",
		"clientId":   StudentID,
		"priceTier":  "retail",
		"lines": []map[string]any{
			{"garmentId": GarmentID, "sizeId": SizeID, "quantity": 2},
		},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
