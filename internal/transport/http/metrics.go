package httptransport

import "expvar"

var (
	metricRegisterTotal  = expvar.NewInt("register_total")
	metricRegisterErrors = expvar.NewInt("register_errors_total")

	metricIngestTotal  = expvar.NewInt("ingest_total")
	metricIngestErrors = expvar.NewInt("ingest_errors_total")

	metricChallengeIssuedTotal = expvar.NewInt("challenge_issued_total")
	metricVerifyTotal          = expvar.NewInt("verify_total")
	metricVerifyErrors         = expvar.NewInt("verify_errors_total")
)
