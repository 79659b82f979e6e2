// Package httpapi exposes the engine's driving ports over a JSON HTTP API:
// sync triggering and status, semantic search, find-similar, and grounded
// question answering. Routing uses method and path patterns on the standard
// library mux; there is no authentication layer.
package httpapi
