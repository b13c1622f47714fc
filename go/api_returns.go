package uniformserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ordermapper "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/http/mapper"
	returnmapper "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/http/mapper"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	returnsports "github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
)

// ReturnAPI wires HTTP transport with the returns bounded context service.
type ReturnAPI struct {
	service returnsports.Service
}

func NewReturnAPI(service returnsports.Service) ReturnAPI {
	return ReturnAPI{service: service}
}

// Post /v1/orders/:orderId/returns
// Register a full or partial return, or a size/garment exchange
func (api *ReturnAPI) CreateReturn(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload returnmapper.CreateReturn
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	ret, err := api.service.CreateReturn(c.Request.Context(), returnmapper.ToCreateReturnInput(orderID, payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, returnmapper.FromDomainReturn(ret))
}

// Get /v1/orders/:orderId/returns
func (api *ReturnAPI) ListReturns(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	returns, err := api.service.ListReturns(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, returnmapper.FromDomainReturns(returns))
}

// Get /v1/returns/:returnId
func (api *ReturnAPI) GetReturn(c *gin.Context) {
	id, ok := parseUUIDParam(c, "returnId")
	if !ok {
		return
	}
	ret, err := api.service.GetReturn(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, returnmapper.FromDomainReturn(ret))
}

// Post /v1/returns/:returnId/lines/:lineId/reconcile
// Deliver backordered exchange units after a restock
func (api *ReturnAPI) ReconcileExchange(c *gin.Context) {
	returnID, ok := parseUUIDParam(c, "returnId")
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
	ret, err := api.service.ReconcileExchange(c.Request.Context(), types.ReconcileExchangeInput{
		ReturnID:     returnID,
		LineID:       lineID,
		RestockedQty: payload.RestockedQty,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, returnmapper.FromDomainReturn(ret))
}
