package proxy

import (
	jsoniter "github.com/json-iterator/go"

	"genaihub/providers/ai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dialect = "proxy"

/*
	##### WIRE FORMAT #####
*/

type chatCompletionRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

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

/*
	##### NORMALIZATION #####
*/

// requestToChatCompletion converts a StreamRequest into the proxy dialect,
// which speaks the OpenAI-compatible chat-completions wire format. The system
// prompt is prepended exactly once, ahead of any system message already in
// the history.
func requestToChatCompletion(request ai.StreamRequest, model string) (chatCompletionRequest, error) {
	messages := make([]wireMessage, 0, len(request.Messages)+1)
	messages = append(messages, wireMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})

	for _, message := range request.Messages {
		content, err := buildContent(message)
		if err != nil {
			return chatCompletionRequest{}, err
		}
		messages = append(messages, wireMessage{Role: string(message.Role), Content: content})
	}

	return chatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}, nil
}

// buildContent maps message content to the wire shape, preserving both string
// and multipart forms. Unknown part tags fail with a MappingError.
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
