package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	a := New()
	b := New()

	a.Guesses.WithLabelValues("marvel", ResultCorrect).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Guesses.WithLabelValues("marvel", ResultCorrect)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Guesses.WithLabelValues("marvel", ResultCorrect)))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Selections.WithLabelValues("dc", OutcomeSelected).Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `comicguess_selections_total{outcome="selected",track="dc"} 1`)
}
