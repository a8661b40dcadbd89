package services

import (
	"regexp"

	"github.com/jeremysolarz/invoices-with-card-element/models"
)

const (
	PaymentsDashboardBase  = "https://dashboard.stripe.com/test/payments"
	CustomersDashboardBase = "https://dashboard.stripe.com/test/customers"
)

// A token runs until whitespace and is trimmed back to its last word character,
// so "pi_123." links "pi_123". Both prefixes live in one alternation so each
// token is matched exactly once.
var dashboardIDPattern = regexp.MustCompile(`(pi|cus)_\S+\b`)

// Linkify splits text into plain runs and dashboard links for payment intent
// (pi_…) and customer (cus_…) identifiers.
func Linkify(text string) models.Message {
	matches := dashboardIDPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return models.Message{Segments: []models.Segment{{Kind: models.SegmentText, Text: text}}}
	}

	segments := make([]models.Segment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			segments = append(segments, models.Segment{Kind: models.SegmentText, Text: text[last:start]})
		}

		id := text[start:end]
		seg := models.Segment{Kind: models.SegmentPaymentLink, Text: id, URL: PaymentsDashboardBase + "/" + id}
		if text[m[2]:m[3]] == "cus" {
			seg = models.Segment{Kind: models.SegmentCustomerLink, Text: id, URL: CustomersDashboardBase + "/" + id}
		}
		segments = append(segments, seg)
		last = end
	}
	if last < len(text) {
		segments = append(segments, models.Segment{Kind: models.SegmentText, Text: text[last:]})
	}

	return models.Message{Segments: segments}
}
