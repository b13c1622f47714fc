package errors

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// Responder writes problem documents. A non-empty BaseURI turns the relative
// problem types into absolute ones.
type Responder struct {
	BaseURI string
}

// Respond writes problem, defaulting Instance to the request path.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// RespondError writes err as-is when it already is a ProblemDetail and as an
// opaque 500 otherwise. The original error is kept on the gin context.
func (r *Responder) RespondError(c *gin.Context, err error) {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	_ = c.Error(err)
	r.Respond(c, ErrInternal.WithDetail("unexpected error"))
}

// ErrorMapper maps domain/application errors to ProblemDetail.
type ErrorMapper func(err error) (ProblemDetail, bool)

// ChainedResponder tries its mappers in order before the default handling.
type ChainedResponder struct {
	Responder
	mappers []ErrorMapper
}

func NewChainedResponder(baseURI string, mappers ...ErrorMapper) *ChainedResponder {
	return &ChainedResponder{Responder: Responder{BaseURI: baseURI}, mappers: mappers}
}

func (r *ChainedResponder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	r.Responder.RespondError(c, err)
}

// Rule pairs a sentinel error with the problem it becomes.
type Rule struct {
	Err     error
	Problem ProblemDetail
	Code    string
}

// MapRules builds an ErrorMapper from rules checked in order with errors.Is.
// The error message becomes the problem detail.
func MapRules(rules ...Rule) ErrorMapper {
	return func(err error) (ProblemDetail, bool) {
		for _, rule := range rules {
			if errors.Is(err, rule.Err) {
				return rule.Problem.WithDetail(err.Error()).WithCode(rule.Code), true
			}
		}
		return ProblemDetail{}, false
	}
}
