package uniformserver

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ordersapp "github.com/Apurer/uniform-orders-api/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	returnsapp "github.com/Apurer/uniform-orders-api/internal/domains/returns/application"
	returnsdomain "github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	returnsports "github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
	settlementapp "github.com/Apurer/uniform-orders-api/internal/domains/settlement/application"
	settlementdomain "github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	settlementports "github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
	stockapp "github.com/Apurer/uniform-orders-api/internal/domains/stock/application"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
	apierrors "github.com/Apurer/uniform-orders-api/internal/shared/errors"
)

// Conflicts are checked first, then missing resources, then malformed input,
// and finally state-machine refusals, since application errors wrap the
// domain sentinel that caused them.
var responder = apierrors.NewChainedResponder("",
	apierrors.MapRules(
		apierrors.Rule{Err: ordersports.ErrIdempotencyConflict, Problem: apierrors.ErrConflict, Code: "IdempotencyConflict"},
		apierrors.Rule{Err: settlementdomain.ErrAlreadyAssociated, Problem: apierrors.ErrConflict, Code: "AlreadyAssociated"},
		apierrors.Rule{Err: ordersapp.ErrConflict, Problem: apierrors.ErrConflict, Code: "Conflict"},
		apierrors.Rule{Err: returnsapp.ErrConflict, Problem: apierrors.ErrConflict, Code: "Conflict"},
		apierrors.Rule{Err: settlementapp.ErrConflict, Problem: apierrors.ErrConflict, Code: "Conflict"},
		apierrors.Rule{Err: stockapp.ErrConflict, Problem: apierrors.ErrConflict, Code: "Conflict"},
	),
	apierrors.MapRules(
		apierrors.Rule{Err: ordersports.ErrNotFound, Problem: apierrors.ErrNotFound, Code: "NotFound"},
		apierrors.Rule{Err: returnsports.ErrNotFound, Problem: apierrors.ErrNotFound, Code: "NotFound"},
		apierrors.Rule{Err: settlementports.ErrNotFound, Problem: apierrors.ErrNotFound, Code: "NotFound"},
		apierrors.Rule{Err: stockports.ErrNotFound, Problem: apierrors.ErrNotFound, Code: "NotFound"},
	),
	apierrors.MapRules(
		apierrors.Rule{Err: ordersapp.ErrInvalidInput, Problem: apierrors.ErrValidation, Code: "InvalidInput"},
		apierrors.Rule{Err: returnsapp.ErrInvalidInput, Problem: apierrors.ErrValidation, Code: "InvalidInput"},
		apierrors.Rule{Err: settlementapp.ErrInvalidInput, Problem: apierrors.ErrValidation, Code: "InvalidInput"},
		apierrors.Rule{Err: stockapp.ErrInvalidInput, Problem: apierrors.ErrValidation, Code: "InvalidInput"},
	),
	apierrors.MapRules(
		apierrors.Rule{Err: ordersdomain.ErrConfirmationRequired, Problem: apierrors.ErrUnprocessable, Code: "ConfirmationRequired"},
		apierrors.Rule{Err: ordersdomain.ErrInvalidTransition, Problem: apierrors.ErrUnprocessable, Code: "InvalidTransition"},
		apierrors.Rule{Err: ordersdomain.ErrIncompleteFulfillment, Problem: apierrors.ErrUnprocessable, Code: "IncompleteFulfillment"},
		apierrors.Rule{Err: ordersdomain.ErrOrderNotEligible, Problem: apierrors.ErrUnprocessable, Code: "OrderNotEligible"},
		apierrors.Rule{Err: ordersdomain.ErrInvalidGrant, Problem: apierrors.ErrUnprocessable, Code: "InvalidGrant"},
		apierrors.Rule{Err: returnsdomain.ErrOrderNotEligible, Problem: apierrors.ErrUnprocessable, Code: "OrderNotEligible"},
		apierrors.Rule{Err: returnsdomain.ErrOverReturn, Problem: apierrors.ErrUnprocessable, Code: "OverReturn"},
		apierrors.Rule{Err: returnsdomain.ErrOverFulfillment, Problem: apierrors.ErrUnprocessable, Code: "OverFulfillment"},
		apierrors.Rule{Err: settlementdomain.ErrOrderNotEligible, Problem: apierrors.ErrUnprocessable, Code: "OrderNotEligible"},
		apierrors.Rule{Err: settlementdomain.ErrCutClosed, Problem: apierrors.ErrUnprocessable, Code: "CutClosed"},
		apierrors.Rule{Err: settlementdomain.ErrOutsidePeriod, Problem: apierrors.ErrUnprocessable, Code: "OutsidePeriod"},
		apierrors.Rule{Err: stockdomain.ErrInactive, Problem: apierrors.ErrUnprocessable, Code: "Inactive"},
	),
	apierrors.MapRules(
		apierrors.Rule{Err: stockdomain.ErrInvalidQuantity, Problem: apierrors.ErrValidation, Code: "InvalidQuantity"},
		apierrors.Rule{Err: stockdomain.ErrInvalidGarment, Problem: apierrors.ErrValidation, Code: "InvalidInput"},
		apierrors.Rule{Err: stockdomain.ErrInvalidSize, Problem: apierrors.ErrValidation, Code: "InvalidInput"},
	),
)

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}

// respondServiceError turns a use case error into an RFC 7807 response.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func respondBindError(c *gin.Context, err error) {
	respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondProblem(c, apierrors.InvalidParam(name, "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondProblem(c, apierrors.InvalidParam(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func noRoute(c *gin.Context) {
	respondProblem(c, apierrors.RouteNotFound(c.Request.URL.Path))
}

func methodNotAllowed(c *gin.Context) {
	respondProblem(c, apierrors.ErrMethodNotAllowed.WithDetail(c.Request.Method+" is not supported on "+c.Request.URL.Path))
}
