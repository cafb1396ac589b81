package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ansovision/mt5-community-api/internal/config"
	"github.com/ansovision/mt5-community-api/internal/database"
	"github.com/ansovision/mt5-community-api/internal/distributor"
	"github.com/ansovision/mt5-community-api/internal/kafka"
	"github.com/ansovision/mt5-community-api/internal/metrics"
	"github.com/ansovision/mt5-community-api/internal/models"
	"github.com/ansovision/mt5-community-api/internal/redis"
)

// How many pending signals one poll hands out, oldest first.
const dispatchBatchSize = 10

const summaryCacheTTL = 10 * time.Second

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	producer *kafka.Producer
	cache    *redis.Client
	dist     *distributor.Distributor
	account  config.AccountConfig
	log      zerolog.Logger
}

// NewHandler creates a new Handler. The producer and cache may be nil when
// Kafka or Redis are unavailable; the handlers degrade without them.
func NewHandler(db *database.DB, producer *kafka.Producer, cache *redis.Client, dist *distributor.Distributor, account config.AccountConfig, log zerolog.Logger) *Handler {
	return &Handler{
		db:       db,
		producer: producer,
		cache:    cache,
		dist:     dist,
		account:  account,
		log:      log,
	}
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "MT5 Community Trading API",
		"status":  "running",
		"version": "2.0",
	})
}

// ReceiveSignal handles POST /api/signal from the signal generator.
func (h *Handler) ReceiveSignal(w http.ResponseWriter, r *http.Request) {
	signal, ok := h.ingestSignal(w, r, "api")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Signal received",
		"signal_id": signal.ID,
	})
}

// ManualSignal handles POST /api/signals/manual. Intentionally open: it
// exists so signals can be pushed by hand while testing the pipeline.
func (h *Handler) ManualSignal(w http.ResponseWriter, r *http.Request) {
	signal, ok := h.ingestSignal(w, r, "manual")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Signal created successfully",
		"signal_id": signal.ID,
		"signal":    signal,
	})
}

// ingestSignal validates, defaults and persists an incoming signal. On
// failure it writes the error response and returns ok=false.
func (h *Handler) ingestSignal(w http.ResponseWriter, r *http.Request, source string) (*models.Signal, bool) {
	var req models.SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	signal, err := req.Normalize()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	if err := h.db.CreateSignal(signal); err != nil {
		h.log.Error().Err(err).Str("symbol", signal.Symbol).Msg("failed to store signal")
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	metrics.SignalsReceived.WithLabelValues(source).Inc()
	h.log.Info().Str("symbol", signal.Symbol).Str("action", signal.Action).Int("signal_id", signal.ID).Msg("signal stored")

	if h.producer != nil {
		if err := h.producer.PublishSignalReceived(r.Context(), signal); err != nil {
			h.log.Warn().Err(err).Int("signal_id", signal.ID).Msg("failed to publish signal event")
		}
	}

	return signal, true
}

// PendingSignals handles GET /api/signals/pending. The terminal polls this
// endpoint; every returned signal is atomically flipped to processing so
// no poller receives it twice.
func (h *Handler) PendingSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.db.ClaimPendingSignals(dispatchBatchSize)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to claim pending signals")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if signals == nil {
		signals = []*models.Signal{}
	}
	metrics.SignalsClaimed.Add(float64(len(signals)))

	respondJSON(w, http.StatusOK, signals)
}

// ConfirmTrade handles POST /api/trades/confirm from the terminal.
func (h *Handler) ConfirmTrade(w http.ResponseWriter, r *http.Request) {
	var req models.TradeConfirmation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade := &models.Trade{
		Ticket:    req.Ticket,
		Symbol:    req.Symbol,
		Action:    req.Action,
		Volume:    req.Volume,
		OpenPrice: req.Price,
	}
	if err := h.db.CreateTrade(trade); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Str("symbol", trade.Symbol).Int64("ticket", trade.Ticket).Msg("trade confirmed")

	if h.producer != nil {
		if err := h.producer.PublishTradeConfirmed(r.Context(), trade); err != nil {
			h.log.Warn().Err(err).Int64("ticket", trade.Ticket).Msg("failed to publish trade event")
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Trade confirmed"})
}

// TradeHistory handles GET /api/trades/history
func (h *Handler) TradeHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	trades, err := h.db.GetTradeHistory(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	respondJSON(w, http.StatusOK, trades)
}

// UpdateAccount handles POST /api/account/update. The snapshot write must
// succeed; profit distribution is best effort and never blocks the
// terminal's acknowledgment.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.AccountUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot := &models.AccountSnapshot{
		Balance:    req.Balance,
		Equity:     req.Equity,
		Margin:     req.Margin,
		FreeMargin: req.FreeMargin,
		Profit:     req.Profit,
	}
	if err := h.db.CreateAccountSnapshot(snapshot); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.AccountUpdatesTotal.WithLabelValues("http").Inc()

	if _, err := h.dist.Distribute(req.Profit); err != nil {
		h.log.Error().Err(err).Msg("profit distribution failed")
	}

	if h.cache != nil {
		if err := h.cache.InvalidateAccountSummary(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("failed to invalidate account summary cache")
		}
	}

	h.log.Info().Str("balance", req.Balance.String()).Str("profit", req.Profit.String()).Msg("account updated")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Account updated"})
}

// CreateUser handles POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.User
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Investment.IsNegative() {
		respondError(w, http.StatusBadRequest, "investment cannot be negative")
		return
	}

	if err := h.db.CreateUser(&req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "User created",
		"user_id": req.UserID,
	})
}

// Invest handles POST /api/users/{user_id}/invest
func (h *Handler) Invest(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req models.InvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	total, err := h.db.AddInvestment(userID, req.Amount)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.log.Info().Str("user_id", userID).Str("amount", req.Amount.String()).Msg("investment added")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Investment added",
		"amount":  req.Amount,
		"total":   total,
	})
}

// UserStats handles GET /api/users/{user_id}/stats
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	user, err := h.db.GetUser(userID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// AccountStats handles GET /api/account/stats. The summary is cached for a
// few seconds; an account update invalidates it.
func (h *Handler) AccountStats(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if summary, err := h.cache.GetAccountSummary(r.Context()); err == nil && summary != nil {
			respondJSON(w, http.StatusOK, summary)
			return
		}
	}

	snapshot, err := h.db.LatestAccountSnapshot()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := h.db.TotalInvestment()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	creds := h.account.Active()
	summary := &models.AccountSummary{
		TotalInvestment: total,
		AccountMode:     h.account.Mode,
		AccountNumber:   creds.Account,
		Server:          creds.Server,
		IsDemo:          h.account.IsDemo(),
	}
	if snapshot != nil {
		summary.Account = snapshot
	} else {
		summary.Account = map[string]interface{}{}
	}

	if h.cache != nil {
		if err := h.cache.SetAccountSummary(r.Context(), summary, summaryCacheTTL); err != nil {
			h.log.Warn().Err(err).Msg("failed to cache account summary")
		}
	}

	respondJSON(w, http.StatusOK, summary)
}

// AccountConfig handles GET /api/account/config, serving the active
// terminal credential set to the EA.
func (h *Handler) AccountConfig(w http.ResponseWriter, r *http.Request) {
	creds := h.account.Active()
	if creds.Account == "" || creds.Password == "" {
		respondError(w, http.StatusInternalServerError, h.account.Mode+" account not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"mode":     h.account.Mode,
		"account":  creds.Account,
		"password": creds.Password,
		"server":   creds.Server,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.producer != nil {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// respondStoreError maps storage errors onto client/server responses.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
