package services

import (
	"context"
	"sync"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/stretchr/testify/mock"
)

// --- Mocks for Dependencies ---

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

func (m *MockConfirmer) ConfirmCardPayment(ctx context.Context, clientSecret string, method PaymentMethodInput) (*models.PaymentIntentResult, error) {
	args := m.Called(ctx, clientSecret, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntentResult), args.Error(1)
}

type MockMetrics struct{ mock.Mock }

func (m *MockMetrics) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	args := m.Called(ctx, metricName, dimensions)
	return args.Error(0)
}

type MockSNS struct{ mock.Mock }

func (m *MockSNS) Publish(ctx context.Context, topicArn, eventType string, message []byte) error {
	args := m.Called(ctx, topicArn, eventType, message)
	return args.Error(0)
}

// fakeView records what the flow does to the form.
type fakeView struct {
	mu      sync.Mutex
	name    string
	card    string
	enabled []bool
	alerts  []string
}

func (v *fakeView) SetSubmitEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = append(v.enabled, enabled)
}

func (v *fakeView) BillingName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.name
}

func (v *fakeView) CardToken() string { return v.card }

func (v *fakeView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *fakeView) submitEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.enabled) == 0 {
		return false
	}
	return v.enabled[len(v.enabled)-1]
}

// recordingObserver keeps every transition.
type recordingObserver struct {
	mu     sync.Mutex
	events []FlowEvent
}

func (r *recordingObserver) Observe(_ context.Context, ev FlowEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingObserver) transitions() [][2]State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][2]State, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, [2]State{ev.From, ev.To})
	}
	return out
}

func texts(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text())
	}
	return out
}
