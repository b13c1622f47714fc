package uniformserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cutmapper "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/http/mapper"
	settlementports "github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
)

// CutAPI wires HTTP transport with the settlement bounded context service.
type CutAPI struct {
	service settlementports.Service
}

func NewCutAPI(service settlementports.Service) CutAPI {
	return CutAPI{service: service}
}

// Post /v1/cuts
// Open a cash cut over every unassociated order settled in the period
func (api *CutAPI) OpenCut(c *gin.Context) {
	var payload cutmapper.OpenCut
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := api.service.OpenCut(c.Request.Context(), cutmapper.ToOpenCutInput(payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cutmapper.FromDomainCutDetail(detail))
}

// Get /v1/cuts
func (api *CutAPI) ListCuts(c *gin.Context) {
	cuts, err := api.service.ListCuts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cutmapper.FromDomainCuts(cuts))
}

// Get /v1/cuts/:cutId
func (api *CutAPI) GetCutDetail(c *gin.Context) {
	id, ok := parseUUIDParam(c, "cutId")
	if !ok {
		return
	}
	detail, err := api.service.GetCutDetail(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cutmapper.FromDomainCutDetail(detail))
}

// Post /v1/cuts/:cutId/close
func (api *CutAPI) CloseCut(c *gin.Context) {
	id, ok := parseUUIDParam(c, "cutId")
	if !ok {
		return
	}
	cut, err := api.service.CloseCut(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cutmapper.FromDomainCut(cut))
}

// Post /v1/cuts/:cutId/orders
// Add one settled order to an open cut
func (api *CutAPI) AttachOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "cutId")
	if !ok {
		return
	}
	var payload cutmapper.Attach
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	detail, err := api.service.AttachOrder(c.Request.Context(), cutmapper.ToAttachOrderInput(id, payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cutmapper.FromDomainCutDetail(detail))
}
