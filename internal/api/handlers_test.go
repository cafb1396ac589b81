package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansovision/mt5-community-api/internal/config"
	"github.com/ansovision/mt5-community-api/internal/database"
	"github.com/ansovision/mt5-community-api/internal/distributor"
)

const testAPIKey = "test-secret"

func newTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db := database.NewFromConn(conn)
	dist := distributor.New(db, zerolog.Nop())
	account := config.AccountConfig{
		Mode: "demo",
		Demo: config.AccountCredentials{Account: "100200", Password: "pw", Server: "FBS-Demo"},
	}
	handler := NewHandler(db, nil, nil, dist, account, zerolog.Nop())
	return SetupRoutes(handler, testAPIKey, []string{"*"}), mock
}

func doRequest(router *mux.Router, method, path, apiKey, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func signalColumns() []string {
	return []string{
		"id", "symbol", "action", "volume", "sl", "tp", "confidence",
		"timeframe", "limit_orders", "reasoning", "status", "created_at",
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestProtectedEndpoint_MissingKey(t *testing.T) {
	router, mock := newTestRouter(t)

	rec := doRequest(router, "GET", "/api/signals/pending", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid API key", decodeBody(t, rec)["error"])
	// Rejected before the store is touched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedEndpoint_WrongKey(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "POST", "/api/signal", "wrong", `{"symbol":"EURUSD","action":"BUY"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpenEndpoint_NoKeyRequired(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO signals")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	rec := doRequest(router, "POST", "/api/signals/manual", "", `{"symbol":"EURUSD","action":"buy","volume":0.01}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ---------------------------------------------------------------------------
// Signal ingress
// ---------------------------------------------------------------------------

func TestManualSignal_NormalizesAndStores(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO signals")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	rec := doRequest(router, "POST", "/api/signals/manual", "", `{"symbol":"EURUSD","action":"buy","volume":0.01}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(5), body["signal_id"])

	signal := body["signal"].(map[string]interface{})
	assert.Equal(t, "BUY", signal["action"])
	assert.Equal(t, "pending", signal["status"])
	assert.Equal(t, "M15", signal["timeframe"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiveSignal_MissingAction(t *testing.T) {
	router, mock := newTestRouter(t)

	rec := doRequest(router, "POST", "/api/signal", testAPIKey, `{"symbol":"EURUSD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "action")
	// Validation failures write nothing.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiveSignal_InvalidBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "POST", "/api/signal", testAPIKey, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestPendingSignals_ClaimsAndReturns(t *testing.T) {
	router, mock := newTestRouter(t)

	rows := sqlmock.NewRows(signalColumns()).
		AddRow(1, "EURUSD", "BUY", "0.01", nil, nil, 0.85, "M15", false, nil, "pending", time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(10).
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE signals SET status = 'processing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := doRequest(router, "GET", "/api/signals/pending", testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var signals []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signals))
	require.Len(t, signals, 1)
	assert.Equal(t, "EURUSD", signals[0]["symbol"])
	assert.Equal(t, "pending", signals[0]["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingSignals_EmptyListNotNull(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(signalColumns()))
	mock.ExpectCommit()

	rec := doRequest(router, "GET", "/api/signals/pending", testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestInvest_NegativeAmountRejected(t *testing.T) {
	router, mock := newTestRouter(t)

	rec := doRequest(router, "POST", "/api/users/u1/invest", "", `{"amount":-100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "positive")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvest_ReturnsNewTotal(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET investment = investment + $2")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"investment"}).AddRow("1500"))

	rec := doRequest(router, "POST", "/api/users/u1/invest", "", `{"amount":500}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "500", body["amount"])
	assert.Equal(t, "1500", body["total"])
}

func TestInvest_UserNotFound(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET investment = investment + $2")).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"investment"}))

	rec := doRequest(router, "POST", "/api/users/ghost/invest", "", `{"amount":50}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserStats_NotFound(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "investment", "profit_loss", "created_at"}))

	rec := doRequest(router, "GET", "/api/users/ghost/stats", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

func TestAccountStats_NoSnapshotYet(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM account_state")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "equity", "margin", "free_margin", "profit", "timestamp"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(investment), 0) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("1000"))

	rec := doRequest(router, "GET", "/api/account/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	// Empty object, not null, when nothing has been reported yet.
	account, ok := body["account"].(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, account)
	assert.Equal(t, "1000", body["total_investment"])
	assert.Equal(t, "demo", body["account_mode"])
	assert.Equal(t, "100200", body["account_number"])
	assert.Equal(t, true, body["is_demo"])
}

func TestUpdateAccount_DistributionFailureDoesNotBlockAck(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO account_state")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	// The distribution read fails; the update must still be acknowledged.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE investment > 0")).
		WillReturnError(assert.AnError)

	rec := doRequest(router, "POST", "/api/account/update", testAPIKey,
		`{"balance":10000,"equity":10100,"margin":50,"free_margin":10050,"profit":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account updated", decodeBody(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccount_DistributesToInvestedUsers(t *testing.T) {
	router, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO account_state")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE investment > 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "investment", "profit_loss", "created_at"}).
			AddRow(1, "u1", "u1@example.com", "100", "0", now).
			AddRow(2, "u2", "u2@example.com", "300", "0", now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET profit_loss = $2")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET profit_loss = $2")).
		WithArgs("u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(router, "POST", "/api/account/update", testAPIKey,
		`{"balance":10000,"equity":10100,"margin":50,"free_margin":10050,"profit":40}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Account config
// ---------------------------------------------------------------------------

func TestAccountConfig_RequiresKey(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "GET", "/api/account/config", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccountConfig_ReturnsActiveCredentials(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "GET", "/api/account/config", testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "demo", body["mode"])
	assert.Equal(t, "100200", body["account"])
	assert.Equal(t, "FBS-Demo", body["server"])
}
