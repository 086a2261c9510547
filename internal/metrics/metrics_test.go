package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRejection(t *testing.T) {
	before := testutil.ToFloat64(ConservationRejections.WithLabelValues("insufficient_output"))
	RecordRejection("insufficient_output")
	assert.Equal(t, before+1, testutil.ToFloat64(ConservationRejections.WithLabelValues("insufficient_output")))

	otherBefore := testutil.ToFloat64(ConservationRejections.WithLabelValues("other"))
	RecordRejection("")
	assert.Equal(t, otherBefore+1, testutil.ToFloat64(ConservationRejections.WithLabelValues("other")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	TransientRetries.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "pesquera_ledger_transient_retries_total")
}
