// Package api provides the local HTTP REST API and WebSocket relay for the
// Ayla bridge daemon.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Routes
//
// All routes live under /api/v1:
//
//	GET  /health                                    component status and bridge counters
//	GET  /metrics                                   runtime counters
//	GET  /ws                                        live property and connection events
//	POST /auth/ws-ticket                            single-use WebSocket ticket
//	GET  /devices                                   device list (?status=Online)
//	GET  /devices/{dsn}                             one device
//	GET  /devices/{dsn}/rules                       rules naming the device
//	GET  /devices/{dsn}/properties                  last known properties
//	GET  /devices/{dsn}/properties/{name}           one property
//	POST /devices/{dsn}/properties/{name}/datapoints  {"value": ...}
//	GET  /devices/{dsn}/properties/{name}/history   values recorded in InfluxDB
//	GET  /rules                                     account rules
//	POST /rules/{uuid}/enable | /disable
//
// # Security
//
// When api.jwt_secret is set every route except health, metrics and the
// WebSocket upgrade needs an HS256 bearer token (see IssueToken). The
// WebSocket takes a single-use ticket instead so the token never appears in
// a URL.
//
// Errors are JSON: {"status": 404, "code": "not_found", "message": "..."}.
package api
