package uniformserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockmapper "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/http/mapper"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

// StockAPI exposes the stock ledger. Restocks are handed to the orders context
// so waiting backorders are filled oldest first.
type StockAPI struct {
	stock  stockports.Service
	orders ordersports.Service
	logger *slog.Logger
}

func NewStockAPI(stock stockports.Service, orders ordersports.Service, logger *slog.Logger) StockAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return StockAPI{stock: stock, orders: orders, logger: logger}
}

// RestockResult is the response of a restock.
type RestockResult struct {
	Record         stockmapper.StockRecord       `json:"record"`
	Reconciliation *types.ReconcilePendingResult `json:"reconciliation,omitempty"`
}

// Get /v1/stock/:garmentId/:sizeId
func (api *StockAPI) ReadStock(c *gin.Context) {
	garmentID, sizeID, ok := stockKey(c)
	if !ok {
		return
	}
	rec, err := api.stock.Read(c.Request.Context(), garmentID, sizeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockmapper.FromDomainRecord(rec))
}

// Put /v1/stock/:garmentId/:sizeId
// Create or re-price a garment/size combination
func (api *StockAPI) DefineStock(c *gin.Context) {
	garmentID, sizeID, ok := stockKey(c)
	if !ok {
		return
	}
	var payload stockmapper.Define
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	rec, err := api.stock.Define(c.Request.Context(), stockmapper.ToDefineInput(garmentID, sizeID, payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockmapper.FromDomainRecord(rec))
}

// Delete /v1/stock/:garmentId/:sizeId
func (api *StockAPI) DeactivateStock(c *gin.Context) {
	garmentID, sizeID, ok := stockKey(c)
	if !ok {
		return
	}
	if err := api.stock.Deactivate(c.Request.Context(), garmentID, sizeID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Post /v1/stock/:garmentId/:sizeId/restock
// Add units on hand and fill pending backorders
func (api *StockAPI) Restock(c *gin.Context) {
	garmentID, sizeID, ok := stockKey(c)
	if !ok {
		return
	}
	var payload stockmapper.Restock
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := api.stock.Restock(ctx, garmentID, sizeID, payload.Quantity); err != nil {
		respondServiceError(c, err)
		return
	}
	result := RestockResult{}
	if api.orders != nil {
		reconciled, err := api.orders.ReconcilePending(ctx, types.ReconcilePendingInput{
			GarmentID:    garmentID,
			SizeID:       sizeID,
			RestockedQty: payload.Quantity,
		})
		if err != nil {
			// The units are on hand; the backorder sweeper picks up what was missed.
			api.logger.WarnContext(ctx, "restock applied but backorders were not reconciled",
				slog.Int64("stock.garment_id", garmentID), slog.Int64("stock.size_id", sizeID), slog.String("error", err.Error()))
		} else {
			result.Reconciliation = reconciled
		}
	}
	rec, err := api.stock.Read(ctx, garmentID, sizeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	result.Record = stockmapper.FromDomainRecord(rec)
	c.JSON(http.StatusOK, result)
}

// Get /v1/stock/low
// List active records at or below their reorder threshold
func (api *StockAPI) ListLowStock(c *gin.Context) {
	records, err := api.stock.ListBelowThreshold(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockmapper.FromDomainRecords(records))
}

func stockKey(c *gin.Context) (int64, int64, bool) {
	garmentID, ok := parseIDParam(c, "garmentId")
	if !ok {
		return 0, 0, false
	}
	sizeID, ok := parseIDParam(c, "sizeId")
	if !ok {
		return 0, 0, false
	}
	return garmentID, sizeID, true
}
