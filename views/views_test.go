package views

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentMessage() models.Message {
	return models.Message{Segments: []models.Segment{
		{Kind: models.SegmentText, Text: "Payment succeeded: "},
		{Kind: models.SegmentPaymentLink, Text: "pi_123", URL: "https://dashboard.stripe.com/test/payments/pi_123"},
	}}
}

func TestRenderCheckoutPage_Messages(t *testing.T) {
	var buf bytes.Buffer
	err := RenderCheckoutPage(&buf, CheckoutPageData{
		FormID:          "form-1",
		SubmitEnabled:   false,
		MessagesVisible: true,
		Messages: []models.Message{
			paymentMessage(),
			{Segments: []models.Segment{{Kind: models.SegmentText, Text: `<script>alert("x")</script>`}}},
		},
	})
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, `<a href="https://dashboard.stripe.com/test/payments/pi_123" target="_blank">pi_123</a>`)
	assert.Contains(t, html, `&gt; Payment succeeded: `)
	assert.NotContains(t, html, `<script>`)
	assert.Contains(t, html, `&lt;script&gt;`)
	assert.Contains(t, html, `action="/forms/form-1/submit"`)
	assert.Contains(t, html, `<button type="submit" disabled>`)
	assert.NotContains(t, html, `display: none`)
}

func TestRenderCheckoutPage_HiddenMessagesAndAlert(t *testing.T) {
	var buf bytes.Buffer
	err := RenderCheckoutPage(&buf, CheckoutPageData{
		FormID:        "form-2",
		SubmitEnabled: true,
		SelectedCard:  "tok_mastercard",
		Alert:         "Please set your Stripe publishable API key in the .env file",
	})
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, `style="display: none;"`)
	assert.Contains(t, html, `<dialog class="alert" open>`)
	assert.Contains(t, html, "Please set your Stripe publishable API key in the .env file")
	assert.Contains(t, html, `<option value="tok_mastercard" selected>`)
	assert.Contains(t, html, `<button type="submit">`)
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t,
		"> Payment succeeded: pi_123 <https://dashboard.stripe.com/test/payments/pi_123>",
		FormatMessage(paymentMessage()))

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, models.Message{Segments: []models.Segment{{Kind: models.SegmentText, Text: "Client secret returned."}}}))
	assert.Equal(t, "> Client secret returned.\n", buf.String())
}

func TestIsTestCard(t *testing.T) {
	assert.True(t, IsTestCard("tok_visa"))
	assert.False(t, IsTestCard("4242424242424242"))
	assert.False(t, strings.HasPrefix(TestCards[0].Token, "pm_"))
}
