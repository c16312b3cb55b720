package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"organlink/internal/auth"
	"organlink/pkg/types"
)

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, messageResponse{Message: message})
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	s.writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a 500 with a generic message.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		s.internalServerError(w)
		return
	}
	s.writeMessage(w, status, message)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrInvalidDecision):
		return http.StatusBadRequest, "Invalid decision supplied"
	case errors.Is(err, types.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role supplied"
	case errors.Is(err, types.ErrInvalidStatus):
		return http.StatusBadRequest, "Invalid status supplied"
	case errors.Is(err, types.ErrApplicationNotFound):
		return http.StatusNotFound, "Application not found"
	case errors.Is(err, types.ErrOrganRequestNotFound):
		return http.StatusNotFound, "Request not found"
	case errors.Is(err, types.ErrDonationNotFound):
		return http.StatusNotFound, "Donation not found"
	case errors.Is(err, types.ErrApprovalNotFound):
		return http.StatusNotFound, "Approval not found"
	case errors.Is(err, types.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, types.ErrApplicationReviewed):
		return http.StatusConflict, "Application has already been reviewed"
	case errors.Is(err, types.ErrEmailTaken):
		return http.StatusConflict, "Account already exists for this email"
	case errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Not authorized, token invalid"
	}
	return http.StatusInternalServerError, "Internal server error"
}
