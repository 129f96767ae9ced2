package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewAttachesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentLedger, Handler: slog.NewTextHandler(&buf, nil)})

	logger.Info("Ledger write committed", FieldOperation, OpSpend, FieldAmountCents, 150000)

	out := buf.String()
	assert.Contains(t, out, "component=ledger")
	assert.Contains(t, out, "operation=spend")
	assert.Contains(t, out, "amount_cents=150000")
	assert.Equal(t, ComponentLedger, logger.Component())
}

func TestNewDefaultsComponentToApp(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Handler: slog.NewTextHandler(&buf, nil)}).Info("hello")
	assert.Contains(t, buf.String(), "component=app")
}

func TestNewJSONFormatHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf, Component: ComponentBudget})

	logger.Info("dropped")
	logger.Warn("Budget overspent", FieldBudgetID, 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "Budget overspent", record["msg"])
	assert.Equal(t, "budget", record["component"])
	assert.EqualValues(t, 7, record["budget_id"])
}

func TestWithComponentKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: slog.NewTextHandler(&buf, nil)}).
		With(FieldRequestID, "req-1")

	worker := logger.WithComponent(ComponentWorker)
	worker.Info("picked up")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "component=worker")
	assert.NotContains(t, out, "component=http")
	assert.Equal(t, ComponentHTTP, logger.Component())
}

func TestMiddlewareTagsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: slog.NewTextHandler(&buf, nil)})

	var got *Logger
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		got.InfoContext(r.Context(), "handled")
	})
	h := Middleware(logger)(RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/budgets", nil)
	req.Header.Set("X-Request-ID", "abc123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, ComponentHTTP, got.Component())
	assert.Contains(t, buf.String(), "request_id=abc123")
	assert.Contains(t, buf.String(), "component=http")
}

func TestRequestIDMiddlewareSkipsEmptyID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil)})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("no id")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotContains(t, buf.String(), "request_id")
}

func TestFromContextFallsBack(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}
