package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Trades.WithLabelValues("BTC").Add(3)
	m.RestingOrders.WithLabelValues("BTC").Set(7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Trades.WithLabelValues("BTC")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tickmatch_trades_total{symbol="BTC"} 3`), body)
	assert.True(t, strings.Contains(body, `tickmatch_resting_orders{symbol="BTC"} 7`), body)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Trades.WithLabelValues("X").Inc()
	assert.Zero(t, testutil.ToFloat64(b.Trades.WithLabelValues("X")))
}
