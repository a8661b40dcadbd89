package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jeremysolarz/invoices-with-card-element/models"
	"go.uber.org/zap"
)

// ConfirmerFactory builds the card widget's processor client from the
// publishable key.
type ConfirmerFactory func(publishableKey string) CardConfirmer

// PageDeps are shared by every checkout page.
type PageDeps struct {
	API          PaymentAPI
	NewConfirmer ConfirmerFactory
	Request      models.PaymentRequest
	Observer     FlowObserver
	Logger       *zap.Logger
}

// PageView is the part of a front end a page binds to.
type PageView interface {
	CheckoutForm
	CardElement
	Alerter
}

// CheckoutPage is one loaded checkout page: its config, message log and flow.
type CheckoutPage struct {
	ID       uuid.UUID
	Config   models.CheckoutConfig
	Messages *MessageLog
	Flow     *FlowController
}

// LoadCheckoutPage loads the config, builds the card widget from the key and
// wires the submit flow, in that order.
func LoadCheckoutPage(ctx context.Context, deps PageDeps, view PageView, listeners ...MessageListener) (*CheckoutPage, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	logger = logger.With(zap.String("form_id", id.String()))

	messages := NewMessageLog(logger, listeners...)
	cfg, err := LoadCheckoutConfig(ctx, deps.API, messages, view)
	if err != nil {
		return nil, fmt.Errorf("load checkout config: %w", err)
	}

	confirmer := deps.NewConfirmer(cfg.PublishableKey)
	flow := NewFlowController(FlowDeps{
		FormID:    id.String(),
		API:       deps.API,
		Confirmer: confirmer,
		Card:      view,
		Form:      view,
		Messages:  messages,
		Request:   deps.Request,
		Observer:  deps.Observer,
		Logger:    deps.Logger,
	})
	view.SetSubmitEnabled(true)

	logger.Info("Checkout page loaded", zap.Bool("publishable_key_set", cfg.PublishableKey != ""))
	return &CheckoutPage{ID: id, Config: cfg, Messages: messages, Flow: flow}, nil
}
