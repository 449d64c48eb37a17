package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/middleware"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/service"
)

type AuthHandlers struct {
	authService *service.AuthService
	logger      *logrus.Logger
}

func NewAuthHandlers(authService *service.AuthService, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

type RegisterRequest struct {
	CountryCode  string `json:"country_code"`
	MobileNumber string `json:"mobile_number"`
}

type OTPResponse struct {
	Success         bool   `json:"success"`
	NewRegistration bool   `json:"new_registration"`
	TransactionID   string `json:"transaction_id"`
	Message         string `json:"message"`
}

type VerifyOTPRequest struct {
	CountryCode   string `json:"country_code"`
	TransactionID string `json:"transaction_id"`
	MobileNumber  string `json:"mobile_number"`
	OTP           string `json:"otp"`
}

type VerifyOTPResponse struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	ID            string          `json:"id"`
	Token         string          `json:"token"`
	UpdateProfile bool            `json:"update_profile"`
	Profile       *models.Profile `json:"profile"`
}

type VerifyFailureResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type RefreshResponse struct {
	Success    bool   `json:"success"`
	ID         string `json:"id,omitempty"`
	Token      string `json:"token,omitempty"`
	LoginAgain bool   `json:"login_again"`
	Message    string `json:"message,omitempty"`
}

type FacebookLoginRequest struct {
	AccessToken string            `json:"access_token"`
	DeviceInfo  models.DeviceInfo `json:"device_info"`
}

type SessionResponse struct {
	Success       bool            `json:"success"`
	ID            string          `json:"id"`
	Token         string          `json:"token"`
	UpdateProfile bool            `json:"update_profile"`
	Profile       *models.Profile `json:"profile"`
}

type MeResponse struct {
	Success bool         `json:"success"`
	ID      string       `json:"id"`
	User    *models.User `json:"user"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid request body"})
		return
	}

	res, err := h.authService.Register(r.Context(), service.RegisterInput{
		MobileNumber: req.MobileNumber,
		CountryCode:  req.CountryCode,
	})
	if err != nil {
		h.respondOTPError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.NewRegistration {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, OTPResponse{
		Success:         true,
		NewRegistration: res.NewRegistration,
		TransactionID:   res.TransactionID,
		Message:         res.Message,
	})
}

func (h *AuthHandlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid request body"})
		return
	}

	res, err := h.authService.ResendOTP(r.Context(), service.RegisterInput{
		MobileNumber: req.MobileNumber,
		CountryCode:  req.CountryCode,
	})
	if err != nil {
		h.respondOTPError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, OTPResponse{
		Success:         true,
		NewRegistration: false,
		TransactionID:   res.TransactionID,
		Message:         res.Message,
	})
}

func (h *AuthHandlers) respondOTPError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "No user found with this mobile number"})
		return
	}
	status, message := errorStatus(err)
	logIfInternal(h.logger, r, status, err)
	respondWithJSON(w, status, MessageResponse{Message: message})
}

func (h *AuthHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, VerifyFailureResponse{Status: "failed", Message: "Invalid request body"})
		return
	}

	res, err := h.authService.VerifyOTP(r.Context(), service.VerifyInput{
		TransactionID: req.TransactionID,
		MobileNumber:  req.MobileNumber,
		OTP:           req.OTP,
	})
	if err != nil {
		status, message := errorStatus(err)
		if errors.Is(err, service.ErrNotFound) {
			status, message = http.StatusBadRequest, "No user found with this mobile number"
		}
		logIfInternal(h.logger, r, status, err)
		respondWithJSON(w, status, VerifyFailureResponse{Status: "failed", Message: message})
		return
	}

	respondWithJSON(w, http.StatusOK, VerifyOTPResponse{
		Status:        "success",
		Message:       "OTP verified successfully",
		ID:            res.UserID,
		Token:         res.Token,
		UpdateProfile: res.UpdateProfile,
		Profile:       res.Profile,
	})
}

// Refresh only renews tokens that are still valid; an expired token means
// a full login.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "Token missing"})
		return
	}

	newToken, userID, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			message = "Token expired"
		case errors.Is(err, service.ErrTokenInvalid):
			message = "Invalid token"
		case errors.Is(err, service.ErrNotFound):
			message = "User not found"
		default:
			h.logger.WithError(err).Error("Failed to refresh token")
			respondWithJSON(w, http.StatusInternalServerError, MessageResponse{Message: genericMessage})
			return
		}
		respondWithJSON(w, http.StatusUnauthorized, RefreshResponse{LoginAgain: true, Message: message})
		return
	}

	respondWithJSON(w, http.StatusOK, RefreshResponse{
		Success:    true,
		ID:         userID,
		Token:      newToken,
		LoginAgain: false,
	})
}

func (h *AuthHandlers) FacebookLogin(w http.ResponseWriter, r *http.Request) {
	var req FacebookLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid request body"})
		return
	}

	res, err := h.authService.FacebookLogin(r.Context(), service.FacebookInput{
		AccessToken: req.AccessToken,
		Device:      req.DeviceInfo,
	})
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			respondWithJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Invalid Facebook token"})
			return
		}
		status, message := errorStatus(err)
		logIfInternal(h.logger, r, status, err)
		respondWithJSON(w, status, MessageResponse{Message: message})
		return
	}

	respondWithJSON(w, http.StatusOK, SessionResponse{
		Success:       true,
		ID:            res.UserID,
		Token:         res.Token,
		UpdateProfile: res.UpdateProfile,
		Profile:       res.Profile,
	})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Access denied. No token provided."})
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), userID)
	if errors.Is(err, service.ErrNotFound) {
		respondWithJSON(w, http.StatusNotFound, MessageResponse{Message: "User not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load current user")
		respondWithJSON(w, http.StatusInternalServerError, MessageResponse{Message: genericMessage})
		return
	}

	respondWithJSON(w, http.StatusOK, MeResponse{Success: true, ID: user.ID, User: user})
}

func (h *AuthHandlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Access denied. No token provided."})
		return
	}

	err := h.authService.DeleteAccount(r.Context(), userID)
	if errors.Is(err, service.ErrNotFound) {
		respondWithJSON(w, http.StatusNotFound, MessageResponse{Message: "User not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete account")
		respondWithJSON(w, http.StatusInternalServerError, MessageResponse{Message: genericMessage})
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "User deleted successfully"})
}
