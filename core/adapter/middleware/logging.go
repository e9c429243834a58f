package middleware

import (
	"context"
	"log/slog"
	"time"

	"genaihub/providers/ai"
)

// NewLoggingMiddleware creates a Middleware that emits structured slog
// entries around every stream. The start entry records the message count;
// the completion entry is emitted once the iterator finishes and records the
// duration, the number of delivered events, and the terminal status.
//
// The logger parameter must not be nil. Use slog.Default() if you have not
// configured a custom logger.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error) {
			logger.InfoContext(ctx, "llm stream start",
				"messages", len(request.Messages),
			)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed to start",
					"duration", time.Since(start).String(),
					"error", err.Error(),
				)
				return nil, err
			}

			observed := func(yield func(ai.StreamEvent, error) bool) {
				events := 0
				status := "completed"

				defer func() {
					logger.InfoContext(ctx, "llm stream end",
						"duration", time.Since(start).String(),
						"events", events,
						"status", status,
					)
				}()

				for event, iterErr := range stream.Iter() {
					if iterErr != nil {
						status = "error: " + iterErr.Error()
						yield(ai.StreamEvent{}, iterErr)
						return
					}

					events++
					if !yield(event, nil) {
						status = "stopped by consumer"
						return
					}
				}
			}

			return ai.NewChatStream(observed), nil
		}
	}
}
