package models

import "time"

// CheckoutConfig is what the checkout server returns from GET /config.
type CheckoutConfig struct {
	PublishableKey string `json:"publishableKey"`
}

// PaymentRequest is the body sent to POST /create-payment-intent.
type PaymentRequest struct {
	Currency          string `json:"currency"`
	PaymentMethodType string `json:"paymentMethodType"`
}

// APIError is the error payload the checkout server returns on failure.
type APIError struct {
	Message string `json:"message"`
}

// PaymentResponse is either a created payment intent + invoice or an error.
// The presence of Error alone decides which one it is.
type PaymentResponse struct {
	ClientSecret  string    `json:"clientSecret,omitempty" validate:"required"`
	InvoiceID     string    `json:"invoiceId,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	CustomerID    string    `json:"customerId,omitempty"`
	Error         *APIError `json:"error,omitempty" validate:"-"`
}

// BillingDetails are sent to the processor together with the card.
type BillingDetails struct {
	Name string `json:"name"`
}

// PaymentIntentResult is the processor's view of a confirmed payment intent.
type PaymentIntentResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CheckoutEvent is published for every finished submission.
type CheckoutEvent struct {
	Type            string    `json:"type"` // e.g. "checkout.confirmed", "checkout.server_error"
	FormID          string    `json:"form_id"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	Status          string    `json:"status,omitempty"`
	InvoiceID       string    `json:"invoice_id,omitempty"`
	InvoiceNumber   string    `json:"invoice_number,omitempty"`
	CustomerID      string    `json:"customer_id,omitempty"`
	Message         string    `json:"message,omitempty"`
	Currency        string    `json:"currency"`
	Timestamp       time.Time `json:"timestamp"` // UTC
}
