package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/uniform-orders-api/internal/app/api"
	"github.com/Apurer/uniform-orders-api/internal/app/sweeper"
	cutmapper "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/http/mapper"
	stockmapper "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/http/mapper"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

func memoryComponents(t *testing.T) *api.Components {
	t.Helper()
	components, cleanup, err := api.Build(context.Background(), api.Config{TemporalDisabled: true}, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return components
}

func run(t *testing.T, components *api.Components, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	root := NewRootCommand(func(context.Context) (*api.Components, func(), error) {
		return components, func() {}, nil
	})
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	return out, root.ExecuteContext(context.Background())
}

func TestStockRestockAndLow(t *testing.T) {
	components := memoryComponents(t)
	_, err := components.Stock.Define(context.Background(), stockports.DefineInput{
		GarmentID:        4,
		SizeID:           2,
		WholesalePrice:   decimal.NewFromInt(90),
		RetailPrice:      decimal.NewFromInt(120),
		InitialOnHand:    1,
		ReorderThreshold: 5,
	})
	require.NoError(t, err)

	out, err := run(t, components, "stock", "low")
	require.NoError(t, err)
	var low []stockmapper.StockRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &low))
	require.Len(t, low, 1)
	assert.Equal(t, int64(4), low[0].GarmentID)

	out, err = run(t, components, "stock", "restock", "4", "2", "--quantity", "10")
	require.NoError(t, err)
	var report restockReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 11, report.Record.OnHand)
	require.NotNil(t, report.Reconciliation)
	assert.Zero(t, report.Reconciliation.Granted)

	out, err = run(t, components, "stock", "low")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out.Bytes(), &low))
	assert.Empty(t, low)
}

func TestStockRestockRejectsBadKey(t *testing.T) {
	_, err := run(t, memoryComponents(t), "stock", "restock", "abc", "2", "-q", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "garmentId")
}

func TestCutLifecycle(t *testing.T) {
	components := memoryComponents(t)

	out, err := run(t, components, "cut", "open", "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	var opened cutmapper.CutDetail
	require.NoError(t, json.Unmarshal(out.Bytes(), &opened))
	assert.True(t, opened.Active)
	assert.Zero(t, opened.OrderCount)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), opened.PeriodEnd.UTC())

	out, err = run(t, components, "cut", "close", opened.ID)
	require.NoError(t, err)
	var closed cutmapper.Cut
	require.NoError(t, json.Unmarshal(out.Bytes(), &closed))
	assert.False(t, closed.Active)
	assert.NotNil(t, closed.ClosedAt)

	out, err = run(t, components, "cut", "show", opened.ID)
	require.NoError(t, err)
	var shown cutmapper.CutDetail
	require.NoError(t, json.Unmarshal(out.Bytes(), &shown))
	assert.Equal(t, opened.ID, shown.ID)
	assert.False(t, shown.Active)

	out, err = run(t, components, "cut", "list")
	require.NoError(t, err)
	var cuts []cutmapper.Cut
	require.NoError(t, json.Unmarshal(out.Bytes(), &cuts))
	assert.Len(t, cuts, 1)
}

func TestCutOpenValidatesBounds(t *testing.T) {
	_, err := run(t, memoryComponents(t), "cut", "open", "--from", "March", "--to", "2026-03-31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")

	_, err = run(t, memoryComponents(t), "cut", "close", "not-a-uuid")
	require.Error(t, err)
}

func TestOrdersSweepWithNothingPending(t *testing.T) {
	out, err := run(t, memoryComponents(t), "orders", "sweep")
	require.NoError(t, err)
	var result sweeper.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Zero(t, result.Granted)
}

func TestParseBound(t *testing.T) {
	start, err := parseBound("2026-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)

	ts, err := parseBound("2026-03-01T10:30:00-06:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC), ts)

	_, err = parseBound("", true)
	assert.Error(t, err)
}
