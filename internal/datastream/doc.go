// Package datastream receives live device updates from the Ayla datastream
// service (DSS).
//
// A subscription on the mdss service yields a stream key. Stream opens
// wss://<datastream host>/stream?stream_key=<key> and reads frames of the
// form "<length>|<json>". The heartbeat frame "1|Z" is echoed back and the
// keep-alive "1|X" is ignored. Everything else decodes into an Event.
//
// The last subscription is kept in a Store so a restarted process reuses
// its stream key. A key the service rejects is forgotten and a new
// subscription is created on the next attempt.
package datastream
