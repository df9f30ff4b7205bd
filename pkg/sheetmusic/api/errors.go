package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type requestError struct {
	status int
	code   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{status: http.StatusBadRequest, code: "bad_request", err: err}
}

func unauthorized(err error) error {
	return &requestError{status: http.StatusUnauthorized, code: "unauthorized", err: err}
}

// statusFor maps an error to its HTTP status and error code
func statusFor(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.code
	case errors.Is(err, sheetmusic.ErrSheetMusicNotFound), errors.Is(err, sheetmusic.ErrPdfNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sheetmusic.ErrOwnershipMismatch):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, sheetmusic.ErrInvalidPageRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *SheetMusicHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		message = "an internal server error occurred"
	} else {
		h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}

	writeJSONError(w, r, status, code, message)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// Health answers liveness checks
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
