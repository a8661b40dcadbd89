package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	aws_pkg "github.com/jeremysolarz/invoices-with-card-element/pkg/aws"
	"go.uber.org/zap"
)

const observerTimeout = 5 * time.Second

// Observers fans a transition out to several observers.
type Observers []FlowObserver

func (o Observers) Observe(ctx context.Context, ev FlowEvent) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}

// MetricsRecorder is the part of the CloudWatch metrics client the flow uses.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// MetricsObserver counts submissions and their outcomes.
type MetricsObserver struct {
	metrics MetricsRecorder
	service string
	logger  *zap.Logger
}

func NewMetricsObserver(metrics MetricsRecorder, service string, logger *zap.Logger) *MetricsObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsObserver{metrics: metrics, service: service, logger: logger}
}

func (m *MetricsObserver) Observe(ctx context.Context, ev FlowEvent) {
	var metric string
	switch ev.To {
	case StateSubmitting:
		metric = aws_pkg.MetricCheckoutSubmissions
	case StateServerError:
		metric = aws_pkg.MetricCheckoutServerErrors
	case StateConfirmError:
		metric = aws_pkg.MetricCheckoutConfirmErrors
	case StateConfirmed:
		metric = aws_pkg.MetricCheckoutConfirmed
	default:
		return
	}

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()
	dims := map[string]string{"Service": m.service, "Currency": ev.Request.Currency}
	if err := m.metrics.RecordCount(mctx, metric, dims); err != nil {
		m.logger.Warn("Failed to record checkout metric", zap.String("metric", metric), zap.Error(err))
	}
}

// EventPublisher publishes a CheckoutEvent to SNS for every finished submission.
type EventPublisher struct {
	sns      aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewEventPublisher(sns aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

func (p *EventPublisher) Observe(ctx context.Context, ev FlowEvent) {
	if ev.From != StateSubmitting {
		return
	}

	event := models.CheckoutEvent{
		Type:      "checkout." + ev.To.String(),
		FormID:    ev.FormID,
		Message:   ev.Message,
		Currency:  ev.Request.Currency,
		Timestamp: ev.At,
	}
	if ev.Response != nil {
		event.InvoiceID = ev.Response.InvoiceID
		event.InvoiceNumber = ev.Response.InvoiceNumber
		event.CustomerID = ev.Response.CustomerID
	}
	if ev.Intent != nil {
		event.PaymentIntentID = ev.Intent.ID
		event.Status = ev.Intent.Status
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal checkout event", zap.Error(err))
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()
	if err := p.sns.Publish(pctx, p.topicArn, event.Type, payload); err != nil {
		p.logger.Error("Failed to publish checkout event to SNS",
			zap.String("event_type", event.Type),
			zap.String("form_id", event.FormID),
			zap.Error(err),
		)
		return
	}
	p.logger.Info("Checkout event published to SNS",
		zap.String("event_type", event.Type),
		zap.String("form_id", event.FormID),
	)
}
