package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/service"
)

const (
	maxBodyBytes   = 1 << 20
	genericMessage = "Something went wrong on our side. Please try again later."
)

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// errorStatus maps a service error to its HTTP status and client message.
// Not-found is left to the caller because its meaning differs per route.
func errorStatus(err error) (int, string) {
	var fe *service.FieldError
	switch {
	case errors.As(err, &fe):
		return http.StatusBadRequest, fe.Message
	case errors.Is(err, service.ErrChallengeNotFound):
		return http.StatusBadRequest, "No pending OTP found"
	case errors.Is(err, service.ErrChallengeExpired):
		return http.StatusBadRequest, "OTP expired"
	case errors.Is(err, service.ErrCodeMismatch):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusServiceUnavailable, "Failed to send OTP. Try again Later"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, genericMessage
	}
}

func logIfInternal(logger *logrus.Logger, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
}
