package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// LedgerMetrics counts ledger operations by name and result code. It
// satisfies ledger.Metrics.
type LedgerMetrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewLedgerMetrics creates the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	ops, err := meter.Int64Counter("wavechat_ledger_operations_total",
		metric.WithDescription("Ledger operations by result code"))
	if err != nil {
		return nil, err
	}
	dur, err := meter.Float64Histogram("wavechat_ledger_operation_duration_seconds",
		metric.WithDescription("Ledger operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{operations: ops, duration: dur}, nil
}

func (m *LedgerMetrics) ObserveOperation(ctx context.Context, op string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("code", apperrors.GetErrorCode(err)),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
