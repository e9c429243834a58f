// Package middleware provides built-in middleware implementations for the
// genaihub adapter. Each middleware is constructed via a New* function that
// returns a [Middleware] ready to be placed in the adapter's chain.
//
// # Available Middleware
//
//   - [NewRetryMiddleware]: Retries stream initiation with exponential backoff
//     and jitter. The retry boundary is the first delivered text delta; once
//     the caller has seen output, failures are surfaced instead of retried.
//
//   - [NewLoggingMiddleware]: Emits structured slog log entries when a stream
//     starts and when it terminates (completion, consumer stop, or error).
//
// Middlewares execute outermost-first: the first entry in the chain is the
// outermost wrapper, meaning it runs first on the way in and last on the way
// out. The adapter's default chain is:
//
//	Logging (outermost) → Retry → Transport
package middleware
