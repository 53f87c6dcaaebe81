package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartAndGetSession(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)

	rr := env.do(t, http.MethodGet, "/api/v1/pos/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeEnvelope(t, rr)
	require.True(t, resp.Success)

	var payload sessionPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	require.Equal(t, sessionID, payload.ID)
	require.Equal(t, "collecting", payload.State)
	require.Empty(t, payload.Lines)
}

func TestStartSessionWithOpeningFloat(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions", map[string]any{"openingFloat": 50000})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var payload sessionPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.EqualValues(t, 50000, payload.OpeningFloat)

	rr = env.do(t, http.MethodPost, "/api/v1/pos/sessions", map[string]any{"openingFloat": -100})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_request", decodeEnvelope(t, rr).Error)
}

func TestAbandonSession(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1"})

	rr := env.do(t, http.MethodDelete, "/api/v1/pos/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/v1/pos/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "session_not_found", decodeEnvelope(t, rr).Error)
}

func TestGetSessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/pos/sessions/reg_missing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	resp := decodeEnvelope(t, rr)
	require.False(t, resp.Success)
	require.Equal(t, "session_not_found", resp.Error)
}

func TestAddProductAndTotals(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{
		"productId": "prod-1",
		"quantity":  2,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload sessionPayload
	resp := decodeEnvelope(t, rr)
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	require.Len(t, payload.Lines, 1)
	require.Equal(t, 2, payload.Lines[0].Quantity)
	require.EqualValues(t, 20000, payload.Totals.Total)
	require.Equal(t, "$20.000", payload.Totals.Formatted)
}

func TestAddProductUnknown(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{
		"productId": "prod-missing",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_request", decodeEnvelope(t, rr).Error)
}

func TestSetQuantityAndRemoveLine(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1"})

	rr := env.do(t, http.MethodPatch, "/api/v1/pos/sessions/"+sessionID+"/lines/prod-1", map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload sessionPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.Equal(t, 5, payload.Lines[0].Quantity)

	rr = env.do(t, http.MethodDelete, "/api/v1/pos/sessions/"+sessionID+"/lines/prod-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.Empty(t, payload.Lines)
}

func TestApplyDiscountEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1", "quantity": 2})

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/discount", map[string]any{
		"type":  "percentage",
		"value": 10,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload sessionPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.NotNil(t, payload.Discount)
	require.EqualValues(t, 2000, payload.Totals.Discount)
	require.EqualValues(t, 18000, payload.Totals.Total)

	rr = env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/discount", map[string]any{
		"type":  "percentage",
		"value": 150,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSetTaxEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1"})

	rr := env.do(t, http.MethodPut, "/api/v1/pos/sessions/"+sessionID+"/tax", map[string]any{"rate": 19})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload sessionPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.EqualValues(t, 19, payload.TaxRate)
	require.EqualValues(t, 1900, payload.Totals.Tax)
	require.EqualValues(t, 11900, payload.Totals.Total)
}

func TestRouterUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "route_not_found", decodeEnvelope(t, rr).Error)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.Equal(t, "ok", payload["status"])
}
