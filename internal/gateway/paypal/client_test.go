package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/gateway"
)

type fakePayPal struct {
	tokenCalls   int32
	tokenCode    int
	captureReply string
	captureCode  int
	lastCreate   createOrderRequest
	requestIDs   []string
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		if f.tokenCode != 0 {
			w.WriteHeader(f.tokenCode)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":32400}`)
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastCreate))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"5O190127TN364715T","status":"CREATED"}`)
	})
	mux.HandleFunc("/v2/checkout/orders/5O190127TN364715T/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
		code := f.captureCode
		if code == 0 {
			code = http.StatusCreated
		}
		w.WriteHeader(code)
		_, _ = io.WriteString(w, f.captureReply)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakePayPal) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(&config.PayPalConfig{ClientID: "cid", Secret: "secret", Currency: "USD"}, WithBaseURL(srv.URL))
}

func TestCreateOrder(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	id, err := c.CreateOrder(context.Background(), decimal.RequireFromString("45.5"))
	require.NoError(t, err)
	assert.Equal(t, "5O190127TN364715T", id)

	assert.Equal(t, "CAPTURE", f.lastCreate.Intent)
	require.Len(t, f.lastCreate.PurchaseUnits, 1)
	assert.Equal(t, "45.50", f.lastCreate.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "USD", f.lastCreate.PurchaseUnits[0].Amount.CurrencyCode)
}

func TestCaptureCompleted(t *testing.T) {
	f := &fakePayPal{captureReply: `{
		"id":"5O190127TN364715T","status":"COMPLETED",
		"purchase_units":[{"payments":{"captures":[{"id":"3C679366HH908993F","status":"COMPLETED","amount":{"currency_code":"USD","value":"45.50"}}]}}]
	}`}
	c := newTestClient(t, f)

	res, err := c.CaptureOrder(context.Background(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "3C679366HH908993F", res.TransactionID)
	require.True(t, res.Amount.Valid)
	assert.True(t, decimal.RequireFromString("45.50").Equal(res.Amount.Decimal))
}

func TestCaptureWithoutAmount(t *testing.T) {
	f := &fakePayPal{captureReply: `{"id":"5O190127TN364715T","status":"COMPLETED"}`}
	c := newTestClient(t, f)

	res, err := c.CaptureOrder(context.Background(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.False(t, res.Amount.Valid)
	assert.Equal(t, "5O190127TN364715T", res.TransactionID)
}

func TestCaptureGatewayError(t *testing.T) {
	f := &fakePayPal{captureCode: http.StatusUnprocessableEntity, captureReply: `{"name":"UNPROCESSABLE_ENTITY"}`}
	c := newTestClient(t, f)

	_, err := c.CaptureOrder(context.Background(), "5O190127TN364715T")
	require.Error(t, err)
	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.StatusCode)
	assert.Contains(t, gwErr.Body, "UNPROCESSABLE_ENTITY")
}

func TestTokenIsReused(t *testing.T) {
	f := &fakePayPal{captureReply: `{"id":"5O190127TN364715T","status":"COMPLETED"}`}
	c := newTestClient(t, f)
	ctx := context.Background()

	_, err := c.CreateOrder(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = c.CaptureOrder(ctx, "5O190127TN364715T")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&f.tokenCalls))
	require.Len(t, f.requestIDs, 2)
	assert.NotEmpty(t, f.requestIDs[0])
	assert.NotEqual(t, f.requestIDs[0], f.requestIDs[1])
}

func TestTokenRejected(t *testing.T) {
	f := &fakePayPal{tokenCode: http.StatusUnauthorized}
	c := newTestClient(t, f)

	_, err := c.CreateOrder(context.Background(), decimal.NewFromInt(10))
	require.Error(t, err)
	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "token", gwErr.Op)
	assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
	assert.Contains(t, gwErr.Body, "invalid_client")
	assert.Empty(t, f.requestIDs, "orders endpoint never reached")
}
