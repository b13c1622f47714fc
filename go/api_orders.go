package uniformserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ordermapper "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/http/mapper"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
)

// IdempotencyKeyHeader lets clients retry CreateOrder safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderAPI wires HTTP transport with the orders bounded context service and placement saga.
type OrderAPI struct {
	service   ordersports.Service
	placement ordersports.PlacementOrchestrator
}

// NewOrderAPI creates an OrderAPI. A nil placement runs CreateOrder directly on the service.
func NewOrderAPI(service ordersports.Service, placement ordersports.PlacementOrchestrator) OrderAPI {
	return OrderAPI{service: service, placement: placement}
}

// Post /v1/orders
// Place an order, reserving stock and backordering the shortfall
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	var payload ordermapper.CreateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	input := ordermapper.ToCreateOrderInput(payload, strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)))
	var (
		order *ordersdomain.Order
		err   error
	)
	if api.placement != nil {
		order, err = api.placement.PlaceOrder(c.Request.Context(), input)
	} else {
		order, err = api.service.CreateOrder(c.Request.Context(), input)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordermapper.FromDomainOrder(order))
}

// Get /v1/orders
// List orders, optionally filtered by status
func (api *OrderAPI) ListOrders(c *gin.Context) {
	orders, err := api.service.ListOrders(c.Request.Context(), types.ListOrdersInput{Status: c.Query("status")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrders(orders))
}

// Get /v1/orders/:orderId
func (api *OrderAPI) GetOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/lines/:lineId/reconcile
// Apply restocked units to one backordered line
func (api *OrderAPI) ReconcileBackorder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(c, "lineId")
	if !ok {
		return
	}
	var payload ordermapper.Reconcile
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := api.service.ReconcileBackorder(c.Request.Context(), types.ReconcileInput{
		OrderID:      orderID,
		LineID:       lineID,
		RestockedQty: payload.RestockedQty,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/transitions
// Move an order along PEDIDO -> ENTREGADO -> LIQUIDADO, or cancel it
func (api *OrderAPI) AdvanceState(c *gin.Context) {
	id, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload ordermapper.Transition
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := api.service.AdvanceState(c.Request.Context(), types.AdvanceStateInput{
		OrderID:   id,
		Target:    ordersdomain.Status(strings.ToUpper(strings.TrimSpace(payload.Target))),
		Confirmed: payload.Confirmed,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/settle
func (api *OrderAPI) Settle(c *gin.Context) {
	id, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.Settle(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/payment
// Record the amount received from the client
func (api *OrderAPI) RecordPayment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload ordermapper.Payment
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := api.service.RecordPayment(c.Request.Context(), types.RecordPaymentInput{OrderID: id, Amount: payload.Amount})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}
