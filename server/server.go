// Package server exposes the HTTP API over gorilla/mux with CORS, request
// logging, panic recovery and JWT authentication.
package server

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/auth"
	"github.com/shreedev44/BetterBuddy-api/contextKey"
	"github.com/shreedev44/BetterBuddy-api/models"
)

// authMiddleware requires a valid Bearer access token, resolves the token's
// subject to a stored user and places the user in the request context.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		splitToken := strings.Split(authHeader, "Bearer ")
		if len(splitToken) != 2 {
			writeMessage(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		userIDHex, err := auth.ParseAuthToken(splitToken[1])
		if err != nil {
			writeServiceError(w, err)
			return
		}

		userID, err := primitive.ObjectIDFromHex(userIDHex)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := auth.GetUser(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey.UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext returns the user placed in the context by authMiddleware.
func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(contextKey.UserKey).(*models.User)
	return user
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %s\n", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the full route table. Split out from Start so handler
// tests can exercise the routes without binding a listener.
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", handleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/login", handleLogin).Methods("POST")
	authRoutes.HandleFunc("/forgot-password", handleForgotPassword).Methods("POST")
	authRoutes.HandleFunc("/verify-otp-set-password", handleVerifyOTPSetPassword).Methods("POST")
	authRoutes.HandleFunc("/refresh-token", handleRefreshToken).Methods("POST")
	authRoutes.Handle("/logout", authMiddleware(http.HandlerFunc(handleLogout))).Methods("POST")
	authRoutes.Handle("/me", authMiddleware(http.HandlerFunc(handleMe))).Methods("GET")

	taskRoutes := api.PathPrefix("/tasks").Subrouter()
	taskRoutes.Handle("/current-week", authMiddleware(http.HandlerFunc(handleGetCurrentWeekTask))).Methods("GET")
	taskRoutes.Handle("/current-week", authMiddleware(http.HandlerFunc(handleSaveCurrentWeekTask))).Methods("POST")
	taskRoutes.Handle("/custom-task/{taskIndex}", authMiddleware(http.HandlerFunc(handleUpdateCustomTask))).Methods("PUT")
	taskRoutes.Handle("/custom-task/{taskIndex}", authMiddleware(http.HandlerFunc(handleDeleteCustomTask))).Methods("DELETE")

	reflectionRoutes := api.PathPrefix("/reflections").Subrouter()
	reflectionRoutes.Handle("/previous-week-tasks", authMiddleware(http.HandlerFunc(handlePreviousWeekTasks))).Methods("GET")
	reflectionRoutes.Handle("/previous-week-reflection", authMiddleware(http.HandlerFunc(handlePreviousWeekReflection))).Methods("GET")
	reflectionRoutes.Handle("/submit", authMiddleware(http.HandlerFunc(handleSubmitReflection))).Methods("POST")

	api.HandleFunc("/leaderboard", handleLeaderboard).Methods("GET")

	return r
}

// Start wires the router, middleware stack and HTTP server, then blocks
// serving requests.
func Start(serverURL string) {
	r := NewRouter()

	// Apply the CORS middleware to the router
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	corsRouter := handlers.CORS(corsOrigins, corsMethods, corsHeaders)(recoveryMiddleware(r))

	// Apply the logging middleware
	loggingRouter := handlers.LoggingHandler(os.Stdout, corsRouter)

	u, err := url.Parse(serverURL)
	if err != nil {
		panic(err)
	}

	server := &http.Server{
		Handler:      loggingRouter,
		Addr:         u.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "BetterBuddy API",
		"status":  "ok",
	})
}
