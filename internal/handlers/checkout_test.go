package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func (env *testEnv) seedPaidSession(t *testing.T, quantity int, tenderAmount int64) string {
	t.Helper()
	sessionID := env.startSession(t)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{
		"productId": "prod-1",
		"quantity":  quantity,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/tenders", map[string]any{
		"kind":   "cash",
		"amount": tenderAmount,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionID
}

func TestAddTenderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1", "quantity": 2})

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/tenders", map[string]any{
		"kind":   "card",
		"amount": 15000,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload paymentPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.Equal(t, "collecting", payload.State)
	require.EqualValues(t, 5000, payload.Remaining)
	require.Len(t, payload.Tenders, 1)
}

func TestAddTenderCardCappedAtRemaining(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1"})

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/tenders", map[string]any{
		"kind":   "card",
		"amount": 12000,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload paymentPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.EqualValues(t, 10000, payload.Tenders[0].Amount)
	require.EqualValues(t, 0, payload.Change)
	require.Equal(t, "complete", payload.State)
}

func TestRemoveTenderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedPaidSession(t, 1, 10000)

	rr := env.do(t, http.MethodGet, "/api/v1/pos/sessions/"+sessionID+"/payment", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var payload paymentPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.Equal(t, "complete", payload.State)
	require.Len(t, payload.Tenders, 1)

	rr = env.do(t, http.MethodDelete, "/api/v1/pos/sessions/"+sessionID+"/tenders/"+payload.Tenders[0].ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.Equal(t, "collecting", payload.State)
	require.Empty(t, payload.Tenders)
}

func TestSubmitEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedPaidSession(t, 2, 25000)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/checkout", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodeEnvelope(t, rr)
	require.True(t, resp.Success)
	require.Empty(t, resp.Warnings)

	var payload submitPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	require.EqualValues(t, 5001, payload.OrderID)
	require.EqualValues(t, 20000, payload.Total)
	require.EqualValues(t, 5000, payload.Change)
	require.Equal(t, "$5.000", payload.ChangeDisplay)
	require.Contains(t, payload.Receipt, "Andes Gear")

	require.Len(t, env.orders.calls, 1)
	require.Empty(t, env.shipments.calls)
}

func TestSubmitInsufficientTenderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.startSession(t)
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/lines", map[string]any{"productId": "prod-1", "quantity": 2})
	env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/tenders", map[string]any{"kind": "card", "amount": 15000})

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/checkout", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "insufficient_tender", decodeEnvelope(t, rr).Error)
}

func TestSubmitShippingOrder(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedPaidSession(t, 1, 10000)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/checkout", map[string]any{
		"delivery": "shipping",
		"shipping": map[string]any{
			"firstName": "Valentina",
			"lastName":  "Rojas",
			"address1":  "Los Leones 400",
			"city":      "Providencia",
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, env.shipments.calls, 1)
}

func TestSubmitRejectsInvalidRUT(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedPaidSession(t, 1, 10000)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/checkout", map[string]any{
		"wantInvoice": true,
		"receiverRut": "12.345.678-9",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_request", decodeEnvelope(t, rr).Error)
	require.Empty(t, env.orders.calls)
}

func TestSubmitSideEffectWarnings(t *testing.T) {
	env := newTestEnv(t)
	env.invoices.err = errStubFailure

	sessionID := env.seedPaidSession(t, 1, 10000)

	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions/"+sessionID+"/checkout", map[string]any{
		"wantInvoice": true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodeEnvelope(t, rr)
	require.True(t, resp.Success)
	require.Len(t, resp.Warnings, 1)
	require.Contains(t, resp.Warnings[0], "invoice not issued")
}
