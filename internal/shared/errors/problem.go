// Package errors renders use case failures as RFC 7807 problem documents.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is the body of every non-2xx response. Code and Fields are
// extension members; clients branch on Code rather than on Title.
type ProblemDetail struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Code     string            `json:"code,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithCode returns a copy carrying a stable machine-readable error code. An
// empty code keeps the current one.
func (p ProblemDetail) WithCode(code string) ProblemDetail {
	if code != "" {
		p.Code = code
	}
	return p
}

const (
	TypeValidation       = "/problems/validation-error"
	TypeNotFound         = "/problems/not-found"
	TypeConflict         = "/problems/conflict"
	TypeInternal         = "/problems/internal-error"
	TypeBadRequest       = "/problems/bad-request"
	TypeUnprocessable    = "/problems/unprocessable-entity"
	TypeMethodNotAllowed = "/problems/method-not-allowed"
)

var (
	ErrNotFound = ProblemDetail{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound}

	// ErrValidation covers field-level input errors: bad quantities, unknown
	// ids, non-numeric path parameters.
	ErrValidation = ProblemDetail{Type: TypeValidation, Title: "Validation Error", Status: http.StatusBadRequest}

	// ErrBadRequest is a body that could not be decoded at all.
	ErrBadRequest = ProblemDetail{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest}

	// ErrConflict is a lost optimistic write, a reused idempotency key or an
	// order already held by another cash cut.
	ErrConflict = ProblemDetail{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict}

	ErrInternal = ProblemDetail{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}

	// ErrUnprocessable is a well formed request the order, return or cut
	// cannot accept in its current state.
	ErrUnprocessable = ProblemDetail{Type: TypeUnprocessable, Title: "Unprocessable Entity", Status: http.StatusUnprocessableEntity}

	ErrMethodNotAllowed = ProblemDetail{Type: TypeMethodNotAllowed, Title: "Method Not Allowed", Status: http.StatusMethodNotAllowed}
)

// InvalidParam reports one malformed path or query parameter.
func InvalidParam(name, reason string) ProblemDetail {
	p := ErrValidation.WithDetail(fmt.Sprintf("%s %s", name, reason)).WithCode("InvalidInput")
	p.Fields = map[string]string{name: reason}
	return p
}

// RouteNotFound reports a path no handler is registered for.
func RouteNotFound(path string) ProblemDetail {
	return ErrNotFound.WithDetail(fmt.Sprintf("no route for %s", path)).WithCode("NotFound")
}
