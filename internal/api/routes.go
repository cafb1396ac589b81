package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes. Protected endpoints sit behind
// the shared-secret middleware; the manual signal route and the read-only
// user/account views are deliberately open, matching the deployed trust
// boundaries.
func SetupRoutes(handler *Handler, apiKey string, allowedOrigins []string) *mux.Router {
	r := mux.NewRouter()
	r.Use(CORS(allowedOrigins))

	r.HandleFunc("/", handler.Root).Methods("GET")
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	open := r.PathPrefix("/api").Subrouter()
	open.HandleFunc("/signals/manual", handler.ManualSignal).Methods("POST", "OPTIONS")
	open.HandleFunc("/users", handler.CreateUser).Methods("POST", "OPTIONS")
	open.HandleFunc("/users/{user_id}/invest", handler.Invest).Methods("POST", "OPTIONS")
	open.HandleFunc("/users/{user_id}/stats", handler.UserStats).Methods("GET", "OPTIONS")
	open.HandleFunc("/account/stats", handler.AccountStats).Methods("GET", "OPTIONS")
	open.HandleFunc("/trades/history", handler.TradeHistory).Methods("GET", "OPTIONS")

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(RequireAPIKey(apiKey))
	protected.HandleFunc("/signal", handler.ReceiveSignal).Methods("POST", "OPTIONS")
	protected.HandleFunc("/signals/pending", handler.PendingSignals).Methods("GET", "OPTIONS")
	protected.HandleFunc("/trades/confirm", handler.ConfirmTrade).Methods("POST", "OPTIONS")
	protected.HandleFunc("/account/update", handler.UpdateAccount).Methods("POST", "OPTIONS")
	protected.HandleFunc("/account/config", handler.AccountConfig).Methods("GET", "OPTIONS")

	return r
}
