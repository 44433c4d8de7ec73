package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/pkg/api"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20 // 1MB

var errEmptyBody = errors.New("empty body")

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, api.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// handleServiceError maps cart and catalog errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
	)

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		httpStatus, code = http.StatusBadRequest, api.CodeInvalidQuantity
	case errors.Is(err, domain.ErrInvalidProduct):
		httpStatus, code = http.StatusBadRequest, api.CodeInvalidProduct
	case errors.Is(err, domain.ErrNotFound):
		httpStatus, code = http.StatusNotFound, api.CodeNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		httpStatus, code = http.StatusConflict, api.CodeConflict
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, api.CodeTimeout, "request timed out")
		return
	default:
		respondError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
