// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import "expvar"

// endpointMetrics record endpoint activity counters.
type endpointMetrics struct {
	msgSent     expvar.Int
	msgRecv     expvar.Int
	msgDropped  expvar.Int // received with an unknown or unexpected kind
	dials       expvar.Int // dial attempts, including retries
	dialRetries expvar.Int // dial attempts scheduled after peer-unavailable
	dialFailed  expvar.Int
	connActive  expvar.Int // gauge
	connAccept  expvar.Int // inbound connections admitted
	connReject  expvar.Int // inbound connections refused by the admission cap
	transErrors expvar.Int

	emap *expvar.Map
}

var rootMetrics = newEndpointMetrics()

func newEndpointMetrics() *endpointMetrics {
	em := &endpointMetrics{emap: new(expvar.Map)}
	em.emap.Set("messages_sent", &em.msgSent)
	em.emap.Set("messages_received", &em.msgRecv)
	em.emap.Set("messages_dropped", &em.msgDropped)
	em.emap.Set("dials", &em.dials)
	em.emap.Set("dial_retries", &em.dialRetries)
	em.emap.Set("dial_failures", &em.dialFailed)
	em.emap.Set("connections_active", &em.connActive)
	em.emap.Set("connections_accepted", &em.connAccept)
	em.emap.Set("connections_rejected", &em.connReject)
	em.emap.Set("transport_errors", &em.transErrors)
	return em
}
