package api

import (
	"net/http"

	"github.com/juju/errors"
)

// Error codes carried in error response bodies.
const (
	codeBadRequest = "bad_request"
	codeNotFound   = "not_found"
	codeConflict   = "conflict"
	codeInternal   = "internal_error"
)

// statusFor maps an error kind to the HTTP status and error code reported
// to the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errors.BadRequest), errors.Is(err, errors.NotValid):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, errors.AlreadyExists):
		return http.StatusConflict, codeConflict
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
