package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	m := New()

	m.ObserveCall("gemini", "gemini-1.5-pro", 2*time.Second, nil)
	m.ObserveCall("gemini", "gemini-1.5-pro", time.Second, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.llmCalls.WithLabelValues("gemini", "gemini-1.5-pro", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.llmCalls.WithLabelValues("gemini", "gemini-1.5-pro", "error")))
}

func TestObservePipelines(t *testing.T) {
	m := New()

	m.ObserveGenerationRun(false)
	m.ObserveGenerationRun(true)
	m.ObserveSection(false)
	m.ObserveValidation(true, 0)
	m.ObserveValidation(false, 3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.generationRuns.WithLabelValues("complete")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.generationRuns.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.validations.WithLabelValues("passed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.validations.WithLabelValues("failed")))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveCall("gemini", "gemini-1.5-flash", time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "draftforge_llm_calls_total")
}
