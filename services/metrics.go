package services

import (
	"context"
	"time"

	aws_pkg "checkout-service/pkg/aws"
)

// MetricsRecorder is the business metrics sink. *aws.MetricsClient satisfies it.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

var _ MetricsRecorder = (*aws_pkg.MetricsClient)(nil)

var checkoutDims = map[string]string{"Service": "checkout-service"}

// recordAsync sends metrics on a detached context so the request never waits on them.
func recordAsync(m MetricsRecorder, fn func(ctx context.Context, m MetricsRecorder)) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx, m)
	}()
}
