package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/middleware"
)

func NewRouter(
	authHandlers *AuthHandlers,
	adminHandlers *AdminHandlers,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandlers.Register).Methods("POST", "OPTIONS")
	auth.HandleFunc("/resend-otp", authHandlers.ResendOTP).Methods("POST", "OPTIONS")
	auth.HandleFunc("/verify-otp", authHandlers.VerifyOTP).Methods("POST", "OPTIONS")
	auth.HandleFunc("/refresh", authHandlers.Refresh).Methods("GET", "OPTIONS")
	auth.HandleFunc("/facebook-login", authHandlers.FacebookLogin).Methods("POST", "OPTIONS")

	user := api.PathPrefix("/user").Subrouter()
	user.Use(authMiddleware.RequireAuth)
	user.HandleFunc("/me", authHandlers.Me).Methods("GET")
	user.HandleFunc("/me", authHandlers.DeleteAccount).Methods("DELETE")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/login", adminHandlers.Login).Methods("POST", "OPTIONS")
	admin.HandleFunc("/verify", adminHandlers.Verify).Methods("POST", "OPTIONS")
	admin.HandleFunc("/logout", adminHandlers.Logout).Methods("GET")

	adminOnly := admin.NewRoute().Subrouter()
	adminOnly.Use(adminMiddleware.RequireAdmin)
	adminOnly.HandleFunc("/me", adminHandlers.Me).Methods("GET")

	return router
}
