package services

import (
	"context"

	"github.com/jeremysolarz/invoices-with-card-element/models"
)

const (
	MissingKeyMessage = "No publishable key returned from the server. Please check `.env` and try again"
	MissingKeyAlert   = "Please set your Stripe publishable API key in the .env file"
)

// Alerter shows a message the user has to acknowledge.
type Alerter interface {
	Alert(message string)
}

// LoadCheckoutConfig fetches the publishable key once. A missing key is not an
// error: the user is warned and the caller goes on to build the card widget,
// which fails later at the processor.
func LoadCheckoutConfig(ctx context.Context, fetcher ConfigFetcher, messages *MessageLog, alerter Alerter) (models.CheckoutConfig, error) {
	cfg, err := fetcher.FetchConfig(ctx)
	if err != nil {
		return models.CheckoutConfig{}, err
	}

	if cfg.PublishableKey == "" {
		messages.Add(MissingKeyMessage)
		if alerter != nil {
			alerter.Alert(MissingKeyAlert)
		}
	}
	return *cfg, nil
}
