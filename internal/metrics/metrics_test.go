package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"devlinks/internal/metrics"
)

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveOperation("register", nil)
	m.ObserveOperation("register", errors.New("conflict"))
	m.ObserveOperation("register", nil)
	m.ObserveHandleCheck(true)

	count, err := testutil.GatherAndCount(reg, "devlinks_account_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "devlinks_handle_checks_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("login", nil)
		m.ObserveHandleCheck(false)
	})
}
