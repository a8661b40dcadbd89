package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/jeremysolarz/invoices-with-card-element/pkg/aws"
)

const metricsTimeout = 5 * time.Second

// MetricsSink is the part of the CloudWatch metrics client the middleware uses.
type MetricsSink interface {
	IsEnabled() bool
	Put(ctx context.Context, data ...aws_pkg.Datum) error
}

// MetricsMiddleware sends request count, latency and error counts for every
// routed request in one batch, off the request path.
func MetricsMiddleware(sink MetricsSink, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sink == nil || !sink.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		data := requestMetrics(serviceName, c.Request.Method, route, c.Writer.Status(), time.Since(start))

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
			defer cancel()
			_ = sink.Put(ctx, data...)
		}()
	}
}

func requestMetrics(service, method, route string, status int, latency time.Duration) []aws_pkg.Datum {
	dims := map[string]string{
		"Service": service,
		"Method":  method,
		"Route":   route,
		"Status":  statusCodeToRange(status),
	}
	data := []aws_pkg.Datum{
		aws_pkg.Count(aws_pkg.MetricHTTPRequests, dims),
		aws_pkg.Latency(aws_pkg.MetricHTTPLatency, latency, dims),
	}
	switch {
	case status >= 500:
		data = append(data, aws_pkg.Count(aws_pkg.MetricHTTPErrors, dims), aws_pkg.Count(aws_pkg.MetricHTTP5xx, dims))
	case status >= 400:
		data = append(data, aws_pkg.Count(aws_pkg.MetricHTTPErrors, dims), aws_pkg.Count(aws_pkg.MetricHTTP4xx, dims))
	}
	return data
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
