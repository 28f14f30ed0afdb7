package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Load(ResultOK, 20*time.Millisecond)
	r.Load(ResultError, time.Second)
	r.Write("expenses", ResultOK)
	r.Write("expenses", ResultOK)
	r.Suppressed("settings")
	r.MalformedRows("reservations", 3)
	r.MalformedRows("reservations", 0)
	r.SessionExpired()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.loads.WithLabelValues(ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.writes.WithLabelValues("expenses", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.suppressed.WithLabelValues("settings")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.malformedRows.WithLabelValues("reservations")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionExpired))

	n, err := testutil.GatherAndCount(reg, "organizer_load_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Load(ResultOK, time.Second)
		r.Write("expenses", ResultError)
		r.Suppressed("expenses")
		r.MalformedRows("expenses", 2)
		r.SessionExpired()
	})
}
