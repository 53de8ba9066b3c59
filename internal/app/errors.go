package app

import (
	"errors"
	"fmt"
	"net/http"

	"mentorlink/api/internal/analysis"
	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/mentorship"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// mapError turns any error from the service layer into an HTTP status and
// error body. Messages of validation errors are passed through; storage
// errors never leak their details.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	switch {
	case errors.Is(err, directory.ErrUserNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, mentorship.ErrRequestNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error(), nil
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, jobs.ErrInvalidJob),
		errors.Is(err, mentorship.ErrInvalidRequest),
		errors.Is(err, analysis.ErrInvalidRequest):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, jobs.ErrForbidden), errors.Is(err, mentorship.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", err.Error(), nil
	case errors.Is(err, mentorship.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil
	case errors.Is(err, collection.ErrWriteContention):
		return http.StatusServiceUnavailable, "WRITE_CONTENTION", "The write could not be applied; retry the request", nil
	case errors.Is(err, docstore.ErrStorageCorruption):
		return http.StatusInternalServerError, "STORAGE_CORRUPTION", "Stored data could not be read", nil
	case errors.Is(err, analysis.ErrAnalysisUnavailable):
		return http.StatusBadGateway, "ANALYSIS_UNAVAILABLE", "Analysis service unavailable", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
