package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnInput(ctx, &domain.InputEvent{Flow: domain.FlowPost})
	hooks.OnInput(ctx, &domain.InputEvent{Flow: domain.FlowPost})
	hooks.OnStepEnter(ctx, &domain.StepEvent{Flow: domain.FlowPost, Step: "title"})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: domain.ToolGenerateImage, Duration: time.Second, IsError: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Inputs.WithLabelValues("post")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepEntries.WithLabelValues("post", "title")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues(domain.ToolGenerateImage, "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues(domain.ToolGenerateImage, "ok")))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.Hooks().OnInput(context.Background(), &domain.InputEvent{Flow: domain.FlowIdle})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `utopium_inputs_total{flow="idle"} 1`)
}

func TestCombine_FansOut(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := observability.NewMetrics(nil)

	hooks := observability.Combine(m.Hooks(), observability.LogHooks(logger), domain.LifecycleHooks{})
	hooks.OnToolReturn(context.Background(), &domain.ToolEvent{
		EventBase: domain.EventBase{SessionID: "s1"},
		ToolName:  domain.ToolGenerateCaption,
		IsError:   true,
		Error:     "status 500",
	})
	hooks.OnToolCall(context.Background(), &domain.ToolEvent{ToolName: domain.ToolGenerateCaption})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues(domain.ToolGenerateCaption, "error")))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "session_id=s1")
	assert.Contains(t, buf.String(), `err="status 500"`)
}
