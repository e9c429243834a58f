package direct

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"genaihub/providers/ai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dialect = "direct"

/*
	##### WIRE FORMAT #####
*/

// chatCompletionRequest is the OpenAI-compatible request body. Exactly one of
// MaxTokens / MaxCompletionTokens is set, depending on the model family (see
// tokenLimitField).
type chatCompletionRequest struct {
	Messages            []wireMessage `json:"messages"`
	Stream              bool          `json:"stream"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

// wireMessage carries either string content or a part array; the any type
// preserves both shapes, including the empty string.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wirePart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

/*
	##### QUIRKS #####
*/

// maxCompletionTokenFamilies lists legacy model families whose serving
// endpoint rejects max_tokens and expects max_completion_tokens instead.
// This is a per-model quirk lookup, not a general rule; keep it explicit.
var maxCompletionTokenFamilies = []string{
	"o1",
	"o3",
}

// usesMaxCompletionTokens reports whether modelID belongs to a family that
// requires the renamed token-limit field.
func usesMaxCompletionTokens(modelID string) bool {
	modelID = strings.ToLower(modelID)
	for _, family := range maxCompletionTokenFamilies {
		if strings.Contains(modelID, family) {
			return true
		}
	}
	return false
}

/*
	##### NORMALIZATION #####
*/

// requestToChatCompletion converts a StreamRequest into the direct dialect.
// The system prompt is prepended exactly once, even when the history already
// starts with a system message; the backend expects the injected prompt and
// caller-provided system messages as separate entries.
func requestToChatCompletion(request ai.StreamRequest, model string, maxTokens int) (chatCompletionRequest, error) {
	messages, err := buildMessages(request)
	if err != nil {
		return chatCompletionRequest{}, err
	}

	payload := chatCompletionRequest{
		Messages: messages,
		Stream:   true,
	}

	if maxTokens > 0 {
		if usesMaxCompletionTokens(model) {
			payload.MaxCompletionTokens = maxTokens
		} else {
			payload.MaxTokens = maxTokens
		}
	}

	return payload, nil
}

// buildMessages normalizes the message history into wire messages. The direct
// dialect accepts every adapter role, so roles pass through unchanged.
func buildMessages(request ai.StreamRequest) ([]wireMessage, error) {
	messages := make([]wireMessage, 0, len(request.Messages)+1)
	messages = append(messages, wireMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})

	for _, message := range request.Messages {
		content, err := buildContent(message)
		if err != nil {
			return nil, err
		}
		messages = append(messages, wireMessage{Role: string(message.Role), Content: content})
	}

	return messages, nil
}

// buildContent maps message content to the wire shape. String content passes
// through as-is (empty string included); multipart content becomes a part
// array. An unknown part tag fails with a MappingError — content is never
// silently dropped.
func buildContent(message ai.Message) (any, error) {
	if message.Text != nil {
		return *message.Text, nil
	}

	parts := make([]wirePart, 0, len(message.Parts))
	for _, part := range message.Parts {
		switch part.Type {
		case ai.PartTypeText:
			parts = append(parts, wirePart{Type: "text", Text: part.Text})

		case ai.PartTypeImage:
			detail := part.Image.Detail
			if detail == "" {
				detail = ai.ImageDetailAuto
			}
			parts = append(parts, wirePart{
				Type:     "image_url",
				ImageURL: &wireImageURL{URL: part.Image.URL, Detail: string(detail)},
			})

		default:
			return nil, &ai.MappingError{Dialect: dialect, Part: part.Type}
		}
	}

	return parts, nil
}

// unmarshalStreamChunk decodes one SSE payload.
func unmarshalStreamChunk(payload string) (*chatCompletionStreamChunk, error) {
	var chunk chatCompletionStreamChunk
	if err := json.UnmarshalFromString(payload, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// chunkDeltas extracts the non-empty content deltas from a chunk, in order.
func chunkDeltas(chunk *chatCompletionStreamChunk) []string {
	var deltas []string
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			deltas = append(deltas, *choice.Delta.Content)
		}
	}
	return deltas
}

