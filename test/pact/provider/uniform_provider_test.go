//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	pacttest "github.com/Apurer/uniform-orders-api/test/pact"

	uniformserver "github.com/Apurer/uniform-orders-api/go"
	catalogmemory "github.com/Apurer/uniform-orders-api/internal/domains/catalog/adapters/memory"
	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	ordersmemory "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/observability"
	ordersworkflows "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/uniform-orders-api/internal/domains/orders/application"
	returnsmemory "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/memory"
	returnsapp "github.com/Apurer/uniform-orders-api/internal/domains/returns/application"
	settlementmemory "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/memory"
	settlementsource "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/source"
	settlementapp "github.com/Apurer/uniform-orders-api/internal/domains/settlement/application"
	stockmemory "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/memory"
	stockobs "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/observability"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUniformOrdersProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	seeded := func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
		app.reset(t)
		if setup {
			app.seedStock(t)
		}
		return nil, nil
	}
	empty := func(bool, models.ProviderState) (models.ProviderStateResponse, error) {
		app.reset(t)
		return nil, nil
	}

	verifier := pactprovider.NewVerifier()
	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers: models.StateHandlers{
			pacttest.StateStockDefined: seeded,
			pacttest.StateCatalogReady: seeded,
			pacttest.StateStockMissing: seeded,
			pacttest.StateNoOrders:     empty,
		},
		BeforeEach: func() error {
			app.reset(t)
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp serves a fresh in-memory stack after every reset.
type contractProviderApp struct {
	mu      sync.RWMutex
	handler http.Handler
	stock   stockports.Service
	server  *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset(t)
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		h := app.handler
		app.mu.RUnlock()
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset(t testing.TB) {
	t.Helper()
	catalog := catalogmemory.NewStore()
	catalog.PutGarment(catalogdomain.Garment{ID: pacttest.GarmentID, Name: "Polo", Active: true})
	catalog.PutSize(catalogdomain.Size{ID: pacttest.SizeID, Label: "M"})
	catalog.PutClient(catalogdomain.Client{Kind: catalogdomain.ClientStudent, ID: pacttest.StudentID, Name: pacttest.StudentName})

	stock := stockobs.New(stockapp.NewService(stockmemory.NewLedger()))
	orderRepo := ordersmemory.NewRepository()
	orders := ordersobs.New(ordersapp.NewService(orderRepo, stock, catalog, catalog,
		ordersapp.WithIdempotencyStore(ordersmemory.NewIdempotencyStore())))
	returns := returnsapp.NewService(returnsmemory.NewRepository(), orders, stock, returnsapp.WithCatalog(catalog))
	cuts := settlementapp.NewService(settlementmemory.NewRepository(), settlementsource.NewOrders(orderRepo))

	handlers := uniformserver.ApiHandleFunctions{
		OrderAPI:  uniformserver.NewOrderAPI(orders, ordersworkflows.NewInlinePlacement(orders)),
		ReturnAPI: uniformserver.NewReturnAPI(returns),
		StockAPI:  uniformserver.NewStockAPI(stock, orders, nil),
		CutAPI:    uniformserver.NewCutAPI(cuts),
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router = uniformserver.NewRouterWithGinEngine(router, handlers)

	a.mu.Lock()
	a.handler = router
	a.stock = stock
	a.mu.Unlock()
}

func (a *contractProviderApp) seedStock(t testing.TB) {
	t.Helper()
	a.mu.RLock()
	stock := a.stock
	a.mu.RUnlock()
	_, err := stock.Define(context.Background(), stockports.DefineInput{
		GarmentID:        pacttest.GarmentID,
		SizeID:           pacttest.SizeID,
		WholesalePrice:   decimal.RequireFromString(pacttest.WholesalePrice),
		RetailPrice:      decimal.RequireFromString(pacttest.RetailPrice),
		InitialOnHand:    pacttest.OnHand,
		ReorderThreshold: pacttest.Threshold,
	})
	require.NoError(t, err)
}
