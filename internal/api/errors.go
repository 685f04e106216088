package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dharsanguruparan/hpsearch/internal/decode"
	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/repository"
	"github.com/dharsanguruparan/hpsearch/internal/search"
)

// apiError pairs an HTTP status with the message shown to clients.
type apiError struct {
	Code    int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *apiError) Unwrap() error {
	return e.Err
}

func badRequest(message string) *apiError {
	return &apiError{Code: http.StatusBadRequest, Message: message}
}

// mapError translates domain errors into HTTP errors.
func mapError(err error) *apiError {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return &apiError{Code: http.StatusRequestEntityTooLarge, Message: "upload too large", Err: err}
	case errors.Is(err, ingest.ErrNoInput), errors.Is(err, decode.ErrEmpty):
		return &apiError{Code: http.StatusBadRequest, Message: ingest.ErrNoInput.Error(), Err: err}
	case errors.Is(err, ingest.ErrMissingName):
		return &apiError{Code: http.StatusBadRequest, Message: ingest.ErrMissingName.Error(), Err: err}
	case errors.Is(err, decode.ErrUnsupported):
		return &apiError{Code: http.StatusBadRequest, Message: "could not decode upload", Err: err}
	case errors.Is(err, search.ErrEmptyQuery):
		return &apiError{Code: http.StatusBadRequest, Message: search.ErrEmptyQuery.Error(), Err: err}
	case errors.Is(err, repository.ErrNotFound):
		return &apiError{Code: http.StatusNotFound, Message: "not found", Err: err}
	default:
		return &apiError{Code: http.StatusInternalServerError, Message: "internal server error", Err: err}
	}
}

func respondError(w http.ResponseWriter, err error) {
	apiErr := mapError(err)
	if apiErr.Code >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	respondJSON(w, apiErr.Code, map[string]string{"error": apiErr.Message})
}
