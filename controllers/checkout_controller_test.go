package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	apperrors "github.com/jeremysolarz/invoices-with-card-element/errors"
	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/jeremysolarz/invoices-with-card-element/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentAPI struct{ mock.Mock }

func (m *MockPaymentAPI) FetchConfig(ctx context.Context) (*models.CheckoutConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutConfig), args.Error(1)
}

func (m *MockPaymentAPI) CreatePaymentIntent(ctx context.Context, req models.PaymentRequest) (*models.PaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentResponse), args.Error(1)
}

type MockConfirmer struct{ mock.Mock }

func (m *MockConfirmer) ConfirmCardPayment(ctx context.Context, clientSecret string, method services.PaymentMethodInput) (*models.PaymentIntentResult, error) {
	args := m.Called(ctx, clientSecret, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntentResult), args.Error(1)
}

var testRequest = models.PaymentRequest{Currency: "eur", PaymentMethodType: "card"}

func setupRouter(api *MockPaymentAPI, confirmer *MockConfirmer) (*gin.Engine, *CheckoutController) {
	gin.SetMode(gin.TestMode)
	deps := services.PageDeps{
		API:          api,
		NewConfirmer: func(string) services.CardConfirmer { return confirmer },
		Request:      testRequest,
	}
	cc := NewCheckoutController(deps, time.Second, time.Minute, nil)

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/health", cc.Health)
	r.GET("/", cc.NewForm)
	r.GET("/forms/:id", cc.ShowForm)
	r.GET("/forms/:id/messages", cc.Messages)
	r.POST("/forms/:id/submit", cc.SubmitForm)
	return r, cc
}

func newForm(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/forms/"))
	return loc
}

func submit(r *gin.Engine, formPath, name, card string) *httptest.ResponseRecorder {
	body := url.Values{"name": {name}, "card": {card}}.Encode()
	req := httptest.NewRequest(http.MethodPost, formPath+"/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getMessages(t *testing.T, r *gin.Engine, formPath string) messagesResponse {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath+"/messages", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp messagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNewForm_RendersEnabledForm(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{PublishableKey: "pk_test_123"}, nil)
	r, _ := setupRouter(api, new(MockConfirmer))

	formPath := newForm(t, r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `action="`+formPath+`/submit"`)
	assert.Contains(t, body, `<button type="submit">Pay</button>`)
	assert.Contains(t, body, `style="display: none;"`)
}

func TestNewForm_MissingKeyShowsAlertOnce(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{}, nil)
	r, _ := setupRouter(api, new(MockConfirmer))

	formPath := newForm(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.Contains(t, w.Body.String(), services.MissingKeyAlert)
	assert.Contains(t, w.Body.String(), "No publishable key returned from the server.")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.NotContains(t, w.Body.String(), `<dialog`)
}

func TestNewForm_ServerDown(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(nil, errors.New("connection refused"))
	r, _ := setupRouter(api, new(MockConfirmer))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Checkout server unavailable")
}

func TestSubmitForm_Confirmed(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{PublishableKey: "pk_test_123"}, nil)
	api.On("CreatePaymentIntent", mock.Anything, testRequest).Return(&models.PaymentResponse{
		ClientSecret:  "pi_123_secret_abc",
		InvoiceID:     "in_1",
		InvoiceNumber: "INV-0001",
		CustomerID:    "cus_42",
	}, nil).Once()
	confirmer := new(MockConfirmer)
	confirmer.On("ConfirmCardPayment", mock.Anything, "pi_123_secret_abc", mock.MatchedBy(func(in services.PaymentMethodInput) bool {
		return in.BillingDetails.Name == "Jenny Rosen" && in.Card.CardToken() == "tok_visa"
	})).Return(&models.PaymentIntentResult{ID: "pi_123", Status: "succeeded"}, nil)
	r, _ := setupRouter(api, confirmer)

	formPath := newForm(t, r)
	w := submit(r, formPath, "Jenny Rosen", "tok_visa")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, formPath, w.Header().Get("Location"))

	resp := getMessages(t, r, formPath)
	assert.Equal(t, "confirmed", resp.State)
	assert.True(t, resp.Visible)
	require.Len(t, resp.Messages, 5)
	assert.Equal(t, "Payment succeeded: pi_123", resp.Messages[2].Text())
	assert.Equal(t, "https://dashboard.stripe.com/test/payments/pi_123", resp.Messages[2].Links()[0].URL)

	page := httptest.NewRecorder()
	r.ServeHTTP(page, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.Contains(t, page.Body.String(), `<a href="https://dashboard.stripe.com/test/customers/cus_42" target="_blank">cus_42</a>`)
	assert.Contains(t, page.Body.String(), `disabled>Pay</button>`)

	// A confirmed form is not submitted again.
	w = submit(r, formPath, "Jenny Rosen", "tok_visa")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	api.AssertNumberOfCalls(t, "CreatePaymentIntent", 1)
}

func TestSubmitForm_ServerErrorReenablesForm(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{PublishableKey: "pk_test_123"}, nil)
	api.On("CreatePaymentIntent", mock.Anything, testRequest).
		Return(&models.PaymentResponse{Error: &models.APIError{Message: "card declined"}}, nil)
	r, _ := setupRouter(api, new(MockConfirmer))

	formPath := newForm(t, r)
	submit(r, formPath, "", "tok_visa")

	resp := getMessages(t, r, formPath)
	assert.Equal(t, "idle", resp.State)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "card declined", resp.Messages[0].Text())

	page := httptest.NewRecorder()
	r.ServeHTTP(page, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.Contains(t, page.Body.String(), `<button type="submit">Pay</button>`)
}

func TestSubmitForm_EscapesMessages(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{PublishableKey: "pk"}, nil)
	api.On("CreatePaymentIntent", mock.Anything, testRequest).
		Return(&models.PaymentResponse{Error: &models.APIError{Message: "<script>alert(1)</script>"}}, nil)
	r, _ := setupRouter(api, new(MockConfirmer))

	formPath := newForm(t, r)
	submit(r, formPath, "", "tok_visa")

	page := httptest.NewRecorder()
	r.ServeHTTP(page, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.NotContains(t, page.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, page.Body.String(), "&lt;script&gt;")
}

func TestSubmitForm_UnknownCard(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{PublishableKey: "pk"}, nil)
	r, _ := setupRouter(api, new(MockConfirmer))

	formPath := newForm(t, r)
	w := submit(r, formPath, "", "4242424242424242")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown card")
	api.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
}

func TestForm_NotFound(t *testing.T) {
	r, _ := setupRouter(new(MockPaymentAPI), new(MockConfirmer))

	for _, path := range []string{"/forms/not-a-uuid", "/forms/0b9c7c3e-6f0a-4d4e-9a53-0f6f3f1d2b11/messages"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "Checkout form not found")
	}
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(new(MockPaymentAPI), new(MockConfirmer))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","service":"checkout-web"}`, w.Body.String())
}

func TestSweep_DropsIdleForms(t *testing.T) {
	api := new(MockPaymentAPI)
	api.On("FetchConfig", mock.Anything).Return(&models.CheckoutConfig{PublishableKey: "pk"}, nil)
	r, cc := setupRouter(api, new(MockConfirmer))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cc.now = func() time.Time { return now }
	formPath := newForm(t, r)

	now = now.Add(30 * time.Second)
	assert.Zero(t, cc.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, cc.Sweep())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunSweeper_StopsWithContext(t *testing.T) {
	_, cc := setupRouter(new(MockPaymentAPI), new(MockConfirmer))

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 8)
	done := make(chan struct{})
	go func() {
		cc.RunSweeper(ctx, 5*time.Millisecond, func() int { calls <- struct{}{}; return 0 })
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("extra sweep not called")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
