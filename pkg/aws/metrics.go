package aws

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	// HTTP metrics
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	// Checkout metrics
	MetricCheckoutSubmissions   = "CheckoutSubmissions"
	MetricCheckoutServerErrors  = "CheckoutServerErrors"
	MetricCheckoutConfirmErrors = "CheckoutConfirmErrors"
	MetricCheckoutConfirmed     = "CheckoutConfirmed"
)

type metricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Datum is one data point.
type Datum struct {
	Name       string
	Value      float64
	Unit       types.StandardUnit
	Dimensions map[string]string
}

// Count is a single occurrence of name.
func Count(name string, dimensions map[string]string) Datum {
	return Datum{Name: name, Value: 1, Unit: types.StandardUnitCount, Dimensions: dimensions}
}

// Latency is d in milliseconds.
func Latency(name string, d time.Duration, dimensions map[string]string) Datum {
	return Datum{Name: name, Value: float64(d.Milliseconds()), Unit: types.StandardUnitMilliseconds, Dimensions: dimensions}
}

// MetricsClient puts checkout and HTTP metrics into one CloudWatch namespace.
// A nil or disabled client drops everything.
type MetricsClient struct {
	api       metricsAPI
	namespace string
	enabled   bool
	now       func() time.Time
}

// NewMetricsClient creates a new CloudWatch Metrics client. With
// CLOUDWATCH_ENABLED unset every call is a no-op.
func NewMetricsClient(ctx context.Context) (*MetricsClient, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	namespace := os.Getenv("CLOUDWATCH_NAMESPACE")
	if namespace == "" {
		namespace = "Checkout"
	}
	return newMetricsClient(cloudwatch.NewFromConfig(cfg), namespace, Enabled()), nil
}

func newMetricsClient(api metricsAPI, namespace string, enabled bool) *MetricsClient {
	return &MetricsClient{api: api, namespace: namespace, enabled: enabled, now: time.Now}
}

// Put sends all data points in one PutMetricData call.
func (m *MetricsClient) Put(ctx context.Context, data ...Datum) error {
	if !m.IsEnabled() || len(data) == 0 {
		return nil
	}

	ts := aws.Time(m.now())
	datums := make([]types.MetricDatum, 0, len(data))
	for _, d := range data {
		datums = append(datums, types.MetricDatum{
			MetricName: aws.String(d.Name),
			Value:      aws.Float64(d.Value),
			Unit:       d.Unit,
			Timestamp:  ts,
			Dimensions: dimensionList(d.Dimensions),
		})
	}

	_, err := m.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: datums,
	})
	if err != nil {
		return fmt.Errorf("failed to put %d metrics: %w", len(datums), err)
	}
	return nil
}

// RecordCount increments a counter metric.
func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.Put(ctx, Count(metricName, dimensions))
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

// dimensionList orders dimensions by name; empty values are dropped since
// CloudWatch rejects them.
func dimensionList(dimensions map[string]string) []types.Dimension {
	names := make([]string, 0, len(dimensions))
	for k, v := range dimensions {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	dims := make([]types.Dimension, 0, len(names))
	for _, k := range names {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(dimensions[k])})
	}
	return dims
}
