package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/validation"
)

// envelope is the uniform response shape: exactly one of Data or Error
// is present depending on Success.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: message}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// respondServiceError maps service sentinel errors onto HTTP statuses.
// Unmapped errors are logged and masked as a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFamilyMember):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrInvitationNotFound),
		errors.Is(err, service.ErrLoanNotFound),
		errors.Is(err, service.ErrInstallmentNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrPurchaseNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyInFamily),
		errors.Is(err, service.ErrDuplicateInvitation),
		errors.Is(err, service.ErrInvitationClosed),
		errors.Is(err, service.ErrInvitationExpired),
		errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, service.ErrAdminCannotLeave),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrNotPaid),
		errors.Is(err, service.ErrPurchaseCompleted):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSelfTarget),
		errors.Is(err, service.ErrAdminTarget),
		errors.Is(err, service.ErrSelfInvitation),
		errors.Is(err, service.ErrNotInvitee),
		errors.Is(err, service.ErrEmptySchedule):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses a request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// pathID parses the named path segment as an int64 ID
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
