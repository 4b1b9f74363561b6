// Package httpserver provides the operations HTTP endpoint.
//
// Next to the MCP transport, the service exposes a small REST surface on the
// metrics port: health, Prometheus metrics, the language list, direct
// execution and chat command handling.
package httpserver
