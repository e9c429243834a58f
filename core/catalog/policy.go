package catalog

import "strings"

// The constants and tables below are deliberate policy, not derived logic.
// Their exact membership encodes backend-compatibility knowledge; change them
// only against a known backend behavior, never by re-deriving.

const (
	// scenarioOrchestration is the allowed-scenario tag a model must carry to
	// be usable through this adapter.
	scenarioOrchestration = "orchestration"

	// capabilityTextGeneration must be advertised by the model's latest
	// version for the model to be retained.
	capabilityTextGeneration = "text-generation"

	// capabilityImageRecognition marks models that accept image input.
	capabilityImageRecognition = "image-recognition"

	// capabilityChatHistory marks models that accept multi-turn history.
	capabilityChatHistory = "chat-history"
)

// streamingDenyList forces StreamingSupported=false for any model whose id
// contains one of these family substrings, regardless of what the discovery
// endpoint reports. These families reject streaming requests outright even
// though their metadata claims otherwise.
var streamingDenyList = []string{
	"o1",
	"o3",
}

// streamingDenied reports whether modelID belongs to a deny-listed family.
func streamingDenied(modelID string) bool {
	for _, family := range streamingDenyList {
		if strings.Contains(modelID, family) {
			return true
		}
	}
	return false
}

// hasCapability reports whether tag appears in capabilities.
func hasCapability(capabilities []string, tag string) bool {
	for _, capability := range capabilities {
		if capability == tag {
			return true
		}
	}
	return false
}
