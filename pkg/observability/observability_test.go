package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestInitDisabledIsNoop(t *testing.T) {
	p, err := Init(context.Background(), DefaultConfig("wavechat"))
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)
	require.NotNil(t, p.Meter)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestHTTPMiddleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	spans := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)).Tracer("test")

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(tracer, meter))
	r.Get("/v1/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /v1/conversations/{id}", ended[0].Name())

	metrics := collect(t, reader)
	sum, ok := metrics["wavechat_http_requests_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	dp := sum.DataPoints[0]
	assert.Equal(t, int64(1), dp.Value)
	route, _ := dp.Attributes.Value(attribute.Key("route"))
	assert.Equal(t, "/v1/conversations/{id}", route.AsString())
	status, _ := dp.Attributes.Value(attribute.Key("status"))
	assert.Equal(t, int64(http.StatusForbidden), status.AsInt64())
}

func TestLedgerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	m, err := NewLedgerMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.ObserveOperation(ctx, "send_message", time.Millisecond, nil)
	m.ObserveOperation(ctx, "send_message", time.Millisecond, nil)
	m.ObserveOperation(ctx, "send_message", time.Millisecond, apperrors.NewForbiddenError("conversation", "send to"))

	sum := collect(t, reader)["wavechat_ledger_operations_total"].Data.(metricdata.Sum[int64])
	byCode := map[string]int64{}
	for _, dp := range sum.DataPoints {
		code, _ := dp.Attributes.Value(attribute.Key("code"))
		byCode[code.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byCode[apperrors.CodeOK])
	assert.Equal(t, int64(1), byCode[apperrors.CodeForbidden])
}
