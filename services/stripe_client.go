package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/paymentmethod"
	"go.uber.org/zap"
)

// StripeService confirms card payments the way the browser SDK does: with the
// publishable key and the payment intent's client secret only.
type StripeService struct {
	PublishableKey string

	intents paymentintent.Client
	methods paymentmethod.Client
	logger  *zap.Logger
}

// NewStripeService builds the card widget's processor client. An empty key is
// accepted; Stripe rejects it on first use.
func NewStripeService(publishableKey string, backend stripe.Backend, logger *zap.Logger) *StripeService {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeService{
		PublishableKey: publishableKey,
		intents:        paymentintent.Client{B: backend, Key: publishableKey},
		methods:        paymentmethod.Client{B: backend, Key: publishableKey},
		logger:         logger,
	}
}

// NewStripeBackend returns the API backend, pointed at apiURL when it is set
// (stripe-mock, a recording proxy).
func NewStripeBackend(apiURL string, maxRetries int64) stripe.Backend {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(maxRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}
	return stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
}

// ConfirmCardPayment creates a card payment method from the mounted card and
// billing details, then confirms the intent identified by clientSecret with it.
func (s *StripeService) ConfirmCardPayment(ctx context.Context, clientSecret string, method PaymentMethodInput) (*models.PaymentIntentResult, error) {
	intentID, err := IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Token: stripe.String(method.Card.CardToken()),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(method.BillingDetails.Name),
		},
	}
	pmParams.Context = ctx

	pm, err := s.methods.New(pmParams)
	if err != nil {
		s.logger.Warn("Stripe payment method creation failed", zap.String("payment_intent_id", intentID), zap.Error(err))
		return nil, err
	}

	confirmParams := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(pm.ID),
	}
	confirmParams.Context = ctx
	confirmParams.AddExtra("client_secret", clientSecret)

	pi, err := s.intents.Confirm(intentID, confirmParams)
	if err != nil {
		s.logger.Warn("Stripe confirmation failed", zap.String("payment_intent_id", intentID), zap.Error(err))
		return nil, err
	}

	return &models.PaymentIntentResult{ID: pi.ID, Status: string(pi.Status)}, nil
}

// IntentIDFromClientSecret extracts "pi_123" from "pi_123_secret_abc".
func IntentIDFromClientSecret(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return "", fmt.Errorf("invalid client secret")
	}
	return id, nil
}

// ConfirmErrorMessage returns the text shown to the user for a failed
// confirmation: Stripe's own message when there is one.
func ConfirmErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
