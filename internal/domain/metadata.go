package domain

import (
	"encoding/json"
	"strings"
)

// Metadata block delimiters. When the gateway requests structured output it
// instructs the model to append a JSON block between these markers; parsing
// is best-effort because the model may omit or mangle the block.
const (
	MetadataBlockStart = "---METADATA---"
	MetadataBlockEnd   = "---END_METADATA---"
)

// DefaultConfidenceLevel is assumed when the model omits a confidence level.
const DefaultConfidenceLevel = "medium"

// ResponseMetadata is the structured block a model may emit alongside its
// narrative answer.
type ResponseMetadata struct {
	ConfidenceLevel string   `json:"confidence_level"`
	KeyFactors      []string `json:"key_factors"`
	Risks           []string `json:"risks"`
	Assumptions     []string `json:"assumptions"`
	DataSources     []string `json:"data_sources"`
}

// ConfidenceScore converts the textual confidence level into a [0,1] score.
func (m *ResponseMetadata) ConfidenceScore() float64 {
	switch strings.ToLower(strings.TrimSpace(m.ConfidenceLevel)) {
	case "high":
		return 0.9
	case "low":
		return 0.5
	default:
		return 0.75
	}
}

// ExtractMetadata splits the structured metadata block out of raw model
// output. It returns the parsed metadata and the narrative text with the
// block removed. When no block is present, or the block is unparseable, the
// metadata is nil and the text is returned untouched.
//
// Parsing is tolerant: missing list sections default to empty, a missing
// confidence level defaults to DefaultConfidenceLevel.
func ExtractMetadata(text string) (*ResponseMetadata, string) {
	start := strings.Index(text, MetadataBlockStart)
	if start < 0 {
		return nil, text
	}
	rest := text[start+len(MetadataBlockStart):]
	end := strings.Index(rest, MetadataBlockEnd)
	if end < 0 {
		return nil, text
	}

	block := strings.TrimSpace(rest[:end])
	var meta ResponseMetadata
	if err := json.Unmarshal([]byte(block), &meta); err != nil {
		return nil, text
	}

	if meta.ConfidenceLevel == "" {
		meta.ConfidenceLevel = DefaultConfidenceLevel
	}
	if meta.KeyFactors == nil {
		meta.KeyFactors = []string{}
	}
	if meta.Risks == nil {
		meta.Risks = []string{}
	}
	if meta.Assumptions == nil {
		meta.Assumptions = []string{}
	}
	if meta.DataSources == nil {
		meta.DataSources = []string{}
	}

	stripped := text[:start] + rest[end+len(MetadataBlockEnd):]
	return &meta, strings.TrimSpace(stripped)
}
