package views

import (
	"embed"
	"html/template"
	"io"

	"github.com/jeremysolarz/invoices-with-card-element/models"
)

//go:embed templates/checkout.html
var templateFS embed.FS

var checkoutTemplate = template.Must(template.ParseFS(templateFS, "templates/checkout.html"))

// TestCard is a card the hosted form offers, identified by its Stripe test token.
type TestCard struct {
	Token string
	Label string
}

// TestCards are Stripe's test-mode card tokens.
var TestCards = []TestCard{
	{Token: "tok_visa", Label: "Visa 4242 4242 4242 4242"},
	{Token: "tok_mastercard", Label: "Mastercard 5555 5555 5555 4444"},
	{Token: "tok_amex", Label: "American Express 3782 822463 10005"},
	{Token: "tok_chargeDeclined", Label: "Declined 4000 0000 0000 0002"},
	{Token: "tok_chargeDeclinedInsufficientFunds", Label: "Insufficient funds 4000 0000 0000 9995"},
}

// IsTestCard reports whether token is one of TestCards.
func IsTestCard(token string) bool {
	for _, c := range TestCards {
		if c.Token == token {
			return true
		}
	}
	return false
}

// CheckoutPageData is everything the checkout page template shows.
type CheckoutPageData struct {
	FormID          string
	BillingName     string
	SelectedCard    string
	Cards           []TestCard
	SubmitEnabled   bool
	MessagesVisible bool
	Messages        []models.Message
	Alert           string
}

// RenderCheckoutPage writes the checkout page. Message text is always escaped;
// only dashboard link segments become anchors.
func RenderCheckoutPage(w io.Writer, data CheckoutPageData) error {
	if data.Cards == nil {
		data.Cards = TestCards
	}
	return checkoutTemplate.Execute(w, data)
}
