package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/middleware"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/service"
)

type AdminHandlers struct {
	adminService *service.AdminService
	cookieSecure bool
	logger       *logrus.Logger
}

func NewAdminHandlers(adminService *service.AdminService, cookieSecure bool, logger *logrus.Logger) *AdminHandlers {
	return &AdminHandlers{
		adminService: adminService,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type AdminLoginRequest struct {
	Email string `json:"email"`
}

type AdminLoginResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

type AdminVerifyRequest struct {
	TransactionID string `json:"transaction_id"`
	Email         string `json:"email"`
	OTP           string `json:"otp"`
}

type AdminResponse struct {
	Success bool         `json:"success"`
	Admin   models.Admin `json:"admin"`
}

func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid request body"})
		return
	}

	challenge, err := h.adminService.RequestOTP(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AdminLoginResponse{
		Success:       true,
		TransactionID: challenge.TransactionID,
		Message:       fmt.Sprintf("An OTP has been sent to %s.", challenge.Handle),
	})
}

func (h *AdminHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req AdminVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid request body"})
		return
	}

	session, err := h.adminService.VerifyOTP(r.Context(), req.TransactionID, req.Email, req.OTP)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    session.ID,
		Path:     "/admin",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithJSON(w, http.StatusOK, AdminResponse{Success: true, Admin: session.Admin})
}

func (h *AdminHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminSessionCookie); err == nil {
		if err := h.adminService.Logout(r.Context(), cookie.Value); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    "",
		Path:     "/admin",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AdminHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.AdminSessionFromContext(r.Context())
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Admin login required"})
		return
	}
	respondWithJSON(w, http.StatusOK, AdminResponse{Success: true, Admin: session.Admin})
}

func (h *AdminHandlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "No active admin found"})
		return
	}
	status, message := errorStatus(err)
	logIfInternal(h.logger, r, status, err)
	respondWithJSON(w, status, MessageResponse{Message: message})
}
