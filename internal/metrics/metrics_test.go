package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationCounters(t *testing.T) {
	m := New(nil)

	m.Mutation("add", OutcomeOK)
	m.Mutation("add", OutcomeOK)
	m.Mutation("update", OutcomeRejected)
	m.Conflict()
	m.CacheLookup(true)
	m.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("update", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Mutation("add", OutcomeOK)
	m.Conflict()
	m.CacheLookup(true)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New(nil)
	m.Mutation("clear", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "flexova_cart_mutations_total"))
}
