package orchestration

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"genaihub/providers/ai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dialect = "orchestration"

/*
	##### WIRE FORMAT #####
*/

type completionRequest struct {
	OrchestrationConfig orchestrationConfig `json:"orchestration_config"`
	MessagesHistory     []wireMessage       `json:"messages_history,omitempty"`
	Stream              bool                `json:"stream,omitempty"`
}

type orchestrationConfig struct {
	ModuleConfigurations moduleConfigurations `json:"module_configurations"`
}

type moduleConfigurations struct {
	TemplatingModuleConfig templatingModuleConfig `json:"templating_module_config"`
	LLMModuleConfig        llmModuleConfig        `json:"llm_module_config"`
}

// templatingModuleConfig carries the system prompt as the sole template
// entry; the backend prepends the template to messages_history, which is how
// the system prompt ends up exactly once at the head of the conversation.
type templatingModuleConfig struct {
	Template []wireMessage `json:"template"`
}

type llmModuleConfig struct {
	ModelName   string         `json:"model_name"`
	ModelParams map[string]any `json:"model_params,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	OrchestrationResult struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"orchestration_result"`
}

type completionStreamChunk struct {
	OrchestrationResult struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	} `json:"orchestration_result"`
}

/*
	##### NORMALIZATION #####
*/

// supportedRoles is the role set the templating dialect accepts. Tool and
// function outputs have no lossless representation here; mapping them to
// system (or dropping them) would corrupt the conversation, so they fail.
var supportedRoles = map[ai.MessageRole]bool{
	ai.RoleSystem:    true,
	ai.RoleUser:      true,
	ai.RoleAssistant: true,
}

// requestToCompletion converts a StreamRequest into the orchestration
// dialect: a templating module holding the system prompt, an LLM module
// naming the model, and the flattened message history.
func requestToCompletion(request ai.StreamRequest, model string, maxTokens int) (completionRequest, error) {
	history, err := buildHistory(request.Messages)
	if err != nil {
		return completionRequest{}, err
	}

	return completionRequest{
		OrchestrationConfig: orchestrationConfig{
			ModuleConfigurations: moduleConfigurations{
				TemplatingModuleConfig: templatingModuleConfig{
					Template: []wireMessage{{Role: string(ai.RoleSystem), Content: request.SystemPrompt}},
				},
				LLMModuleConfig: llmModuleConfig{
					ModelName:   model,
					ModelParams: buildModelParams(model, maxTokens),
				},
			},
		},
		MessagesHistory: history,
	}, nil
}

// reasoningFamilies lists model families whose LLM module expects the
// renamed completion-length parameter. Kept as an explicit lookup.
var reasoningFamilies = []string{"o1", "o3"}

// buildModelParams assembles the family-conditional LLM module parameters.
func buildModelParams(model string, maxTokens int) map[string]any {
	if maxTokens <= 0 {
		return nil
	}

	key := "max_tokens"
	lowered := strings.ToLower(model)
	for _, family := range reasoningFamilies {
		if strings.Contains(lowered, family) {
			key = "max_completion_tokens"
			break
		}
	}
	return map[string]any{key: maxTokens}
}

// buildHistory normalizes the message history. Multipart content is flattened
// to its text parts only when every part is text; the templating dialect has
// no image representation, so image parts fail rather than vanish.
func buildHistory(messages []ai.Message) ([]wireMessage, error) {
	history := make([]wireMessage, 0, len(messages))

	for _, message := range messages {
		if !supportedRoles[message.Role] {
			return nil, &ai.MappingError{Dialect: dialect, Role: message.Role}
		}

		content, err := flattenContent(message)
		if err != nil {
			return nil, err
		}
		history = append(history, wireMessage{Role: string(message.Role), Content: content})
	}

	return history, nil
}

// flattenContent reduces message content to the dialect's plain-string shape.
func flattenContent(message ai.Message) (string, error) {
	if message.Text != nil {
		return *message.Text, nil
	}

	var content string
	for _, part := range message.Parts {
		if part.Type != ai.PartTypeText {
			return "", &ai.MappingError{Dialect: dialect, Part: part.Type}
		}
		content += part.Text
	}
	return content, nil
}

// unmarshalStreamChunk decodes one SSE payload and returns its delta text.
func unmarshalStreamChunk(payload string) (string, error) {
	var chunk completionStreamChunk
	if err := json.UnmarshalFromString(payload, &chunk); err != nil {
		return "", err
	}
	if len(chunk.OrchestrationResult.Choices) == 0 {
		return "", nil
	}
	return chunk.OrchestrationResult.Choices[0].Delta.Content, nil
}

// responseContent extracts the full content of a buffered completion.
func responseContent(response *completionResponse) string {
	if len(response.OrchestrationResult.Choices) == 0 {
		return ""
	}
	return response.OrchestrationResult.Choices[0].Message.Content
}
