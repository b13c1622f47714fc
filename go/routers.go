package uniformserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions bundles the handlers of every bounded context.
type ApiHandleFunctions struct {
	OrderAPI  OrderAPI
	ReturnAPI ReturnAPI
	StockAPI  StockAPI
	CutAPI    CutAPI
}

// NewRouter returns a gin engine with every route registered. Middleware
// such as tracing is added by the caller.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine registers the routes on an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	router.HandleMethodNotAllowed = true
	router.NoRoute(noRoute)
	router.NoMethod(methodNotAllowed)
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(h ApiHandleFunctions) []Route {
	return []Route{
		{"CreateOrder", http.MethodPost, "/v1/orders", h.OrderAPI.CreateOrder},
		{"ListOrders", http.MethodGet, "/v1/orders", h.OrderAPI.ListOrders},
		{"GetOrder", http.MethodGet, "/v1/orders/:orderId", h.OrderAPI.GetOrder},
		{"ReconcileBackorder", http.MethodPost, "/v1/orders/:orderId/lines/:lineId/reconcile", h.OrderAPI.ReconcileBackorder},
		{"AdvanceState", http.MethodPost, "/v1/orders/:orderId/transitions", h.OrderAPI.AdvanceState},
		{"Settle", http.MethodPost, "/v1/orders/:orderId/settle", h.OrderAPI.Settle},
		{"RecordPayment", http.MethodPost, "/v1/orders/:orderId/payment", h.OrderAPI.RecordPayment},
		{"CreateReturn", http.MethodPost, "/v1/orders/:orderId/returns", h.ReturnAPI.CreateReturn},
		{"ListReturns", http.MethodGet, "/v1/orders/:orderId/returns", h.ReturnAPI.ListReturns},
		{"GetReturn", http.MethodGet, "/v1/returns/:returnId", h.ReturnAPI.GetReturn},
		{"ReconcileExchange", http.MethodPost, "/v1/returns/:returnId/lines/:lineId/reconcile", h.ReturnAPI.ReconcileExchange},
		{"ListLowStock", http.MethodGet, "/v1/stock/low", h.StockAPI.ListLowStock},
		{"ReadStock", http.MethodGet, "/v1/stock/:garmentId/:sizeId", h.StockAPI.ReadStock},
		{"DefineStock", http.MethodPut, "/v1/stock/:garmentId/:sizeId", h.StockAPI.DefineStock},
		{"DeactivateStock", http.MethodDelete, "/v1/stock/:garmentId/:sizeId", h.StockAPI.DeactivateStock},
		{"Restock", http.MethodPost, "/v1/stock/:garmentId/:sizeId/restock", h.StockAPI.Restock},
		{"OpenCut", http.MethodPost, "/v1/cuts", h.CutAPI.OpenCut},
		{"ListCuts", http.MethodGet, "/v1/cuts", h.CutAPI.ListCuts},
		{"GetCutDetail", http.MethodGet, "/v1/cuts/:cutId", h.CutAPI.GetCutDetail},
		{"CloseCut", http.MethodPost, "/v1/cuts/:cutId/close", h.CutAPI.CloseCut},
		{"AttachOrder", http.MethodPost, "/v1/cuts/:cutId/orders", h.CutAPI.AttachOrder},
	}
}
