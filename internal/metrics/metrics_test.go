package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestSetCodesByState(t *testing.T) {
	SetCodesByState(5, 2, 1)

	assert.Equal(t, 5.0, gaugeValue(t, codesByState.WithLabelValues("active")))
	assert.Equal(t, 2.0, gaugeValue(t, codesByState.WithLabelValues("exhausted")))
	assert.Equal(t, 1.0, gaugeValue(t, codesByState.WithLabelValues("deactivated")))
}

func TestIncRedemptionNormalisesLabel(t *testing.T) {
	before := counterValue(t, redemptionsTotal.WithLabelValues("accepted"))

	IncRedemption(" Accepted ")
	IncRedemption("accepted")

	assert.Equal(t, before+2, counterValue(t, redemptionsTotal.WithLabelValues("accepted")))
}

func TestAddCodesDeactivatedIgnoresZero(t *testing.T) {
	before := counterValue(t, codesDeactivatedTotal.WithLabelValues("refund"))

	AddCodesDeactivated("refund", 0)
	AddCodesDeactivated("refund", 2)

	assert.Equal(t, before+2, counterValue(t, codesDeactivatedTotal.WithLabelValues("refund")))
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		MustRegister()
		MustRegister()
	})
}
