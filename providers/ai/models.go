package ai

/*
	##### TRANSPORT INPUT #####
*/

// StreamRequest is the per-call input to a backend transport. It is owned by
// the call that creates it and discarded once the stream completes or errors.
type StreamRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"` // Prepended exactly once by each dialect's normalizer
	Messages     []Message `json:"messages"`                // Ordered conversation history, system prompt excluded
}

// Message represents a single message in a conversation. Content is either a
// plain string (Text) or an ordered list of Parts; exactly one of the two is
// set. Text is a pointer so that an empty string stays distinct from absent
// content.
type Message struct {
	Role  MessageRole   `json:"role"`
	Text  *string       `json:"text,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`
}

// NewTextMessage builds a Message with plain string content.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Text: &text}
}

// NewPartsMessage builds a Message with multipart content.
func NewPartsMessage(role MessageRole, parts ...ContentPart) Message {
	return Message{Role: role, Parts: parts}
}

// PartType tags the variant carried by a ContentPart.
type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
)

// ContentPart is a tagged union: exactly one of Text or Image is populated,
// discriminated by Type. Normalizers reject any other tag with a
// MappingError instead of silently dropping the part.
type ContentPart struct {
	Type  PartType  `json:"type"`
	Text  string    `json:"text,omitempty"`
	Image *ImageRef `json:"image,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart builds an image content part. An empty detail resolves to
// ImageDetailAuto during normalization.
func ImagePart(url string, detail ImageDetail) ContentPart {
	return ContentPart{Type: PartTypeImage, Image: &ImageRef{URL: url, Detail: detail}}
}

// ImageRef is an image reference inside multipart content.
type ImageRef struct {
	URL    string      `json:"url"`
	Detail ImageDetail `json:"detail,omitempty"`
}

// ImageDetail controls the fidelity requested for image inputs.
type ImageDetail string

const (
	ImageDetailAuto ImageDetail = "auto"
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
)

/*
	##### MODEL METADATA #####
*/

// ModelDescriptor describes one model advertised by the discovery endpoint.
// Descriptors are created by a single bulk fetch, cached for the adapter's
// lifetime, and never mutated after creation.
type ModelDescriptor struct {
	ID                 string   `json:"id"`
	Provider           string   `json:"provider"`
	DisplayName        string   `json:"display_name"`
	Capabilities       []string `json:"capabilities,omitempty"`
	StreamingSupported bool     `json:"streaming_supported"`
	HistorySupported   bool     `json:"history_supported"`
	ImageSupported     bool     `json:"image_supported"`
}

// BackendKind identifies which transport variant the adapter resolved at
// construction time. It is immutable for the adapter's lifetime.
type BackendKind string

const (
	// BackendNone means the credential resolver found no usable transport.
	BackendNone BackendKind = ""
	// BackendDirect is the model-serving client keyed by model id.
	BackendDirect BackendKind = "direct"
	// BackendOrchestration is the templating + LLM module client.
	BackendOrchestration BackendKind = "orchestration"
	// BackendProxy is the raw HTTP deployment-proxy transport.
	BackendProxy BackendKind = "proxy"
)

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleTool      MessageRole = "tool"      // Tool output
	RoleFunction  MessageRole = "function"  // Legacy function output
)
