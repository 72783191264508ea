package web

import (
	"errors"
	"net/http"

	"github.com/liftingwater/MemoryVault/internal/domain"
	"github.com/liftingwater/MemoryVault/internal/storage"
	"github.com/liftingwater/MemoryVault/internal/sync"
)

var errInvalidJSON = errors.New("invalid JSON body")

// statusFor maps an error to the HTTP status returned to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, storage.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, sync.ErrSourceExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMalformedContent),
		errors.Is(err, domain.ErrMalformedCard),
		errors.Is(err, domain.ErrInvalidBox),
		errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for an error.
func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, storage.ErrSourceNotFound):
		return "Source not found"
	case statusFor(err) == http.StatusInternalServerError:
		return "Internal Server Error"
	default:
		return err.Error()
	}
}
