package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/cathai/invoice-backend/pkg/metrics"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.InvoiceResult("accepted")
		m.Notification("photo", nil)
		m.AttachmentsPurged(3)
		m.JobRun("digest", errors.New("x"))
		m.ObserveRequest("invoice", "POST", "200", 0.1)
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()
	m.Notification("photo", errors.New("boom"))
	m.Notification("photo", nil)
	m.Notification("text", nil)
	m.AttachmentsPurged(2)

	n, err := testutil.GatherAndCount(m.Registry, "notifications_total")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = testutil.GatherAndCount(m.Registry, "attachments_purged_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
