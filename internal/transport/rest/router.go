package rest

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"in8/internal/metrics"
	"in8/internal/service"
	"in8/internal/transport/rest/handler"
	"in8/internal/transport/rest/middleware"
	"in8/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	TemplateLoader *service.TemplateLoader
	SessionService *service.SessionService
	ResultService  *service.ResultService
	StatsService   *service.StatsService
	UserService    *service.UserService
	GuideService   *service.GuideService
	Metrics        *metrics.Metrics
	WSHub          *ws.Hub
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService, c.UserService)
	surveyHandler := handler.NewSurveyHandler(c.TemplateLoader, c.SessionService, c.GuideService)
	resultHandler := handler.NewResultHandler(c.ResultService)
	guideHandler := handler.NewGuideHandler(c.GuideService)
	adminHandler := handler.NewAdminHandler(c.TemplateLoader, c.StatsService, c.UserService, c.ResultService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.AllowedOrigins, c.Logger)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(c.Metrics.Middleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/session", authHandler.Session).Methods("POST", "OPTIONS")
	v1.HandleFunc("/guides/{constitution}", guideHandler.Get).Methods("GET", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/admin", wsHandler.AdminWS).Methods("GET")

	// Survey-taker routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/survey/template", surveyHandler.Template).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/survey/progress", surveyHandler.Progress).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/survey/start", surveyHandler.Start).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/survey/answer", surveyHandler.Answer).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/survey/previous", surveyHandler.Previous).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/survey/next", surveyHandler.Next).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/survey/abandon", surveyHandler.Abandon).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/survey/complete", surveyHandler.Complete).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/results", resultHandler.History).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/me", authHandler.Me).Methods("GET", "OPTIONS")

	// Admin routes
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)

	adminRoutes.HandleFunc("/template", adminHandler.PublishTemplate).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/stats", adminHandler.Stats).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/users", adminHandler.ListUsers).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/users/{userId}", adminHandler.DeleteUser).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/users/{userId}/reconcile", adminHandler.Reconcile).Methods("POST", "OPTIONS")

	return withCORS(c.AllowedOrigins, withRecovery(c.Logger, r))
}

func withRecovery(logger *zap.Logger, next http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger.Named("http"))),
		handlers.PrintRecoveryStack(true),
	)(next)
}

// withCORS answers preflight requests before routing so OPTIONS never hits
// the auth middleware.
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(next)
}
