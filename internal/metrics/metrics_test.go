package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordMutation("offer.generated", nil)
	m.RecordMutation("offer.generated", errors.New("boom"))
	m.RecordPersistenceFailure("save")
	m.RecordSignature("bill-of-sale", "typed")
	m.RecordPayment("premium", 0.2, nil)
	m.SetArchiveOutboxSize(4)
	m.RecordHTTPRequest("/api/v1/transaction", "GET", 404, 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("offer.generated", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("offer.generated", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistenceFailuresTotal.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signaturesTotal.WithLabelValues("bill-of-sale", "typed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsTotal.WithLabelValues("premium", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.archiveOutboxSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/transaction", "GET", "4xx")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("x", nil)
		m.RecordPersistenceFailure("save")
		m.RecordDocumentRendered("bill-of-sale", "bespoke")
		m.RecordPaymentAttempt(nil)
		m.RecordArchive("success")
		m.RecordNATSPublish("x", "success", 0)
	})
}
