package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jeremysolarz/invoices-with-card-element/models"
	"go.uber.org/zap"
)

// ErrSubmissionInFlight is returned when the form is submitted while a previous
// submission is running or has already been confirmed.
var ErrSubmissionInFlight = errors.New("checkout: submission already in progress")

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateServerError
	StateConfirmError
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateServerError:
		return "server_error"
	case StateConfirmError:
		return "confirm_error"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CheckoutForm is the form the controller drives. BillingName is read when the
// payment is confirmed, not when the form is submitted.
type CheckoutForm interface {
	SetSubmitEnabled(enabled bool)
	BillingName() string
}

// CardElement is the mounted card input.
type CardElement interface {
	// CardToken returns the processor token for the card currently entered.
	CardToken() string
}

// PaymentMethodInput is what the processor needs to confirm a card payment.
type PaymentMethodInput struct {
	Card           CardElement
	BillingDetails models.BillingDetails
}

// CardConfirmer confirms a payment intent from the client side.
type CardConfirmer interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, method PaymentMethodInput) (*models.PaymentIntentResult, error)
}

// FlowEvent describes one state transition of a flow controller.
type FlowEvent struct {
	FormID   string
	From     State
	To       State
	Request  models.PaymentRequest
	Response *models.PaymentResponse
	Intent   *models.PaymentIntentResult
	Message  string
	At       time.Time
}

// FlowObserver is told about every transition, synchronously and in order.
type FlowObserver interface {
	Observe(ctx context.Context, ev FlowEvent)
}

// FlowController runs the submit sequence of one checkout form.
type FlowController struct {
	formID    string
	api       PaymentIntentCreator
	confirmer CardConfirmer
	card      CardElement
	form      CheckoutForm
	messages  *MessageLog
	request   models.PaymentRequest
	observer  FlowObserver
	validate  *validator.Validate
	logger    *zap.Logger

	mu    sync.Mutex
	state State
}

// FlowDeps groups the collaborators of a FlowController.
type FlowDeps struct {
	FormID    string
	API       PaymentIntentCreator
	Confirmer CardConfirmer
	Card      CardElement
	Form      CheckoutForm
	Messages  *MessageLog
	Request   models.PaymentRequest
	Observer  FlowObserver // optional
	Logger    *zap.Logger  // optional
}

func NewFlowController(deps FlowDeps) *FlowController {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlowController{
		formID:    deps.FormID,
		api:       deps.API,
		confirmer: deps.Confirmer,
		card:      deps.Card,
		form:      deps.Form,
		messages:  deps.Messages,
		request:   deps.Request,
		observer:  deps.Observer,
		validate:  validator.New(),
		logger:    logger.With(zap.String("form_id", deps.FormID)),
		state:     StateIdle,
	}
}

// State returns the current state.
func (f *FlowController) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit handles one submit event and returns the outcome of the submission:
// StateServerError or StateConfirmError (the form is idle again afterwards) or
// StateConfirmed. A submit while not idle is dropped with ErrSubmissionInFlight.
func (f *FlowController) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		current := f.state
		f.mu.Unlock()
		f.logger.Info("Ignoring duplicate submit", zap.Stringer("state", current))
		return current, ErrSubmissionInFlight
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	f.form.SetSubmitEnabled(false)
	f.notify(ctx, FlowEvent{From: StateIdle, To: StateSubmitting})

	resp, err := f.api.CreatePaymentIntent(ctx, f.request)
	if err != nil {
		f.logger.Warn("Payment intent request failed", zap.Error(err))
		return f.fail(ctx, StateServerError, err.Error(), nil), nil
	}
	if resp.Error != nil {
		return f.fail(ctx, StateServerError, resp.Error.Message, resp), nil
	}
	if err := f.validate.Struct(resp); err != nil {
		f.logger.Warn("Invalid payment intent response", zap.Error(err))
		return f.fail(ctx, StateServerError, "Payment intent response did not include a client secret", resp), nil
	}

	f.messages.Add(fmt.Sprintf("Invoice created: %s", resp.InvoiceNumber))
	f.messages.Add("Client secret returned.")

	method := PaymentMethodInput{
		Card:           f.card,
		BillingDetails: models.BillingDetails{Name: f.form.BillingName()},
	}
	intent, err := f.confirmer.ConfirmCardPayment(ctx, resp.ClientSecret, method)
	if err != nil {
		return f.fail(ctx, StateConfirmError, ConfirmErrorMessage(err), resp), nil
	}

	f.mu.Lock()
	f.state = StateConfirmed
	f.mu.Unlock()

	f.messages.Add(fmt.Sprintf("Payment %s: %s", intent.Status, intent.ID))
	f.messages.Add(fmt.Sprintf("Invoice %s will be marked as paid via webhook", resp.InvoiceNumber))
	f.messages.Add(fmt.Sprintf("Customer ID: %s", resp.CustomerID))

	f.logger.Info("Payment confirmed",
		zap.String("payment_intent_id", intent.ID),
		zap.String("status", intent.Status),
		zap.String("invoice_id", resp.InvoiceID),
	)
	f.notify(ctx, FlowEvent{From: StateSubmitting, To: StateConfirmed, Response: resp, Intent: intent})
	return StateConfirmed, nil
}

// fail reports a recoverable error and puts the form back to idle.
func (f *FlowController) fail(ctx context.Context, kind State, msg string, resp *models.PaymentResponse) State {
	f.messages.Add(msg)

	f.mu.Lock()
	f.state = kind
	f.mu.Unlock()
	f.notify(ctx, FlowEvent{From: StateSubmitting, To: kind, Response: resp, Message: msg})

	f.mu.Lock()
	f.state = StateIdle
	f.mu.Unlock()
	f.form.SetSubmitEnabled(true)
	f.notify(ctx, FlowEvent{From: kind, To: StateIdle})

	return kind
}

func (f *FlowController) notify(ctx context.Context, ev FlowEvent) {
	if f.observer == nil {
		return
	}
	ev.FormID = f.formID
	ev.Request = f.request
	ev.At = time.Now().UTC()
	f.observer.Observe(ctx, ev)
}
