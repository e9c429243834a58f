// Package utils provides shared low-level helpers used throughout the
// genaihub internals. It covers HTTP request helpers for both synchronous and
// streaming (SSE) communication with the AI API, plus small string utilities.
//
// Key entry points: [DoPostSync] and [DoGetSync] for synchronous JSON
// round-trips, [DoPostStream] together with [SSEScanner] for Server-Sent
// Events streaming.
package utils
