package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kaptinlin/jsonrepair"

	"genaihub/internal/utils"
	"genaihub/providers/ai"
)

// streamIterator reads the SSE body line by line. Parsing contract: only
// lines with the literal "data: " prefix are candidate payloads (enforced by
// the scanner); "[DONE]" terminates the stream normally; every other payload
// is decoded as JSON and its choices[0].delta.content is emitted when
// non-empty. A payload that fails to decode is repaired if possible and
// otherwise logged and skipped — the proxy chunks the body mid-line at
// times, and one garbled line must not kill the whole stream.
func (transport *Client) streamIterator(ctx context.Context, httpResponse *http.Response) func(yield func(ai.StreamEvent, error) bool) {
	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	return func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			delta, ok := parseChunkPayload(payload)
			if !ok {
				continue
			}

			if delta != "" && !yield(ai.TextEvent(delta), nil) {
				return
			}
		}
	}
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseChunkPayload decodes one SSE payload. The boolean is false when the
// payload is unusable and should be skipped.
func parseChunkPayload(payload string) (string, bool) {
	var chunk chatCompletionStreamChunk
	if err := json.UnmarshalFromString(payload, &chunk); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil || json.UnmarshalFromString(repaired, &chunk) != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(), "payload", utils.TruncateString(payload, 200))
			return "", false
		}
	}

	if len(chunk.Choices) == 0 {
		return "", true
	}
	return chunk.Choices[0].Delta.Content, true
}
