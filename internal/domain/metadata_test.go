package domain

import "testing"

func TestExtractMetadata_FullBlock(t *testing.T) {
	text := `We should expand carefully.

---METADATA---
{"confidence_level":"high","key_factors":["market size"],"risks":["fx exposure"],"assumptions":["stable demand"],"data_sources":["Q3 report"]}
---END_METADATA---`

	meta, stripped := ExtractMetadata(text)
	if meta == nil {
		t.Fatal("ExtractMetadata() meta = nil, want parsed block")
	}
	if meta.ConfidenceLevel != "high" {
		t.Errorf("ConfidenceLevel = %q, want high", meta.ConfidenceLevel)
	}
	if got := meta.ConfidenceScore(); got != 0.9 {
		t.Errorf("ConfidenceScore() = %v, want 0.9", got)
	}
	if len(meta.KeyFactors) != 1 || meta.KeyFactors[0] != "market size" {
		t.Errorf("KeyFactors = %v, want [market size]", meta.KeyFactors)
	}
	if stripped != "We should expand carefully." {
		t.Errorf("stripped text = %q", stripped)
	}
}

func TestExtractMetadata_MissingSectionsDefault(t *testing.T) {
	text := "Answer.\n---METADATA---\n{}\n---END_METADATA---"

	meta, _ := ExtractMetadata(text)
	if meta == nil {
		t.Fatal("ExtractMetadata() meta = nil, want parsed block")
	}
	if meta.ConfidenceLevel != DefaultConfidenceLevel {
		t.Errorf("ConfidenceLevel = %q, want %q", meta.ConfidenceLevel, DefaultConfidenceLevel)
	}
	if got := meta.ConfidenceScore(); got != 0.75 {
		t.Errorf("ConfidenceScore() = %v, want 0.75", got)
	}
	if meta.KeyFactors == nil || meta.Risks == nil || meta.Assumptions == nil || meta.DataSources == nil {
		t.Error("list sections should default to empty, not nil")
	}
}

func TestExtractMetadata_NoBlock(t *testing.T) {
	meta, stripped := ExtractMetadata("plain answer")
	if meta != nil {
		t.Errorf("meta = %+v, want nil", meta)
	}
	if stripped != "plain answer" {
		t.Errorf("stripped = %q, want untouched text", stripped)
	}
}

func TestExtractMetadata_MalformedBlock(t *testing.T) {
	text := "Answer.\n---METADATA---\nnot json\n---END_METADATA---"
	meta, stripped := ExtractMetadata(text)
	if meta != nil {
		t.Errorf("meta = %+v, want nil for malformed block", meta)
	}
	if stripped != text {
		t.Errorf("stripped = %q, want untouched text", stripped)
	}
}

func TestAgentError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    int
	}{
		{ErrorTypeInvalidRequest, 400},
		{ErrorTypeInvalidCredentials, 401},
		{ErrorTypePermissionDenied, 403},
		{ErrorTypeContentBlocked, 403},
		{ErrorTypeQuotaExceeded, 429},
		{ErrorTypeTimeout, 504},
		{ErrorTypeProviderUnavailable, 503},
		{ErrorTypeInternal, 500},
	}
	for _, tt := range tests {
		if got := NewAgentError(tt.errType, "x").HTTPStatusCode(); got != tt.want {
			t.Errorf("HTTPStatusCode(%s) = %d, want %d", tt.errType, got, tt.want)
		}
	}
}
