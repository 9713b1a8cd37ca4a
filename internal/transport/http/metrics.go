package httptransport

import "expvar"

var (
	metricHTTPErrors = expvar.NewInt("http_error_responses_total")

	metricEventsWSTotal   = expvar.NewInt("lobby_events_ws_connections_total")
	metricEventsWSActive  = expvar.NewInt("lobby_events_ws_connections_active")
	metricEventsSSETotal  = expvar.NewInt("lobby_events_sse_connections_total")
	metricEventsSSEActive = expvar.NewInt("lobby_events_sse_connections_active")
)
