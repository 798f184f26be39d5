package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncAPI("get_booking", "200")
		IncOrder("advance", "reused")
	})

	before := testutil.ToFloat64(paymentSessions.WithLabelValues("balance", "failed"))
	IncPaymentSession("balance", "failed")
	assert.Equal(t, before+1, testutil.ToFloat64(paymentSessions.WithLabelValues("balance", "failed")))

	SetCheckoutLeases(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(checkoutLeases))
	SetCheckoutLeases(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(checkoutLeases))
}
