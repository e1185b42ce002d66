package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		codesIssuedTotal,
		redemptionsTotal,
		codesDeactivatedTotal,
		codesByState,
	)
}

var (
	codesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unlock_codes_issued_total",
			Help: "Unlock codes issued, by source (api/webhook).",
		},
		[]string{"source"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unlock_code_redemptions_total",
			Help: "Redemption attempts by result (accepted/not_found/deactivated/exhausted/limit_reached).",
		},
		[]string{"result"},
	)

	codesDeactivatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unlock_codes_deactivated_total",
			Help: "Unlock codes explicitly deactivated, by reason (admin/refund).",
		},
		[]string{"reason"},
	)

	codesByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unlock_codes",
			Help: "Current number of unlock codes per state.",
		},
		[]string{"state"}, // 'active', 'exhausted', 'deactivated'
	)
)

func IncCodeIssued(source string) {
	codesIssuedTotal.WithLabelValues(norm(source)).Inc()
}

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func AddCodesDeactivated(reason string, n int64) {
	if n <= 0 {
		return
	}
	codesDeactivatedTotal.WithLabelValues(norm(reason)).Add(float64(n))
}

func SetCodesByState(active, exhausted, deactivated int64) {
	codesByState.WithLabelValues("active").Set(float64(active))
	codesByState.WithLabelValues("exhausted").Set(float64(exhausted))
	codesByState.WithLabelValues("deactivated").Set(float64(deactivated))
}
