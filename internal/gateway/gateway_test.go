package gateway

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/engine"
	"github.com/execboard/boardroom/internal/evidence"
)

// scriptedEngine returns queued results, counting calls.
type scriptedEngine struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (s *scriptedEngine) Name() string { return "scripted" }

func (s *scriptedEngine) Generate(ctx context.Context, prompt, model string, opts engine.Options) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestGateway_Respond(t *testing.T) {
	eng := &scriptedEngine{text: "Expand carefully."}
	g := New(eng, WithModel("gpt-4o"))

	resp, err := g.Respond(context.Background(), Request{
		Role:     domain.RoleCEO,
		Scenario: "Should we expand to Europe?",
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Text != "Expand carefully." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", resp.Model)
	}
	if resp.TokenCount <= 0 {
		t.Errorf("TokenCount = %d, want > 0", resp.TokenCount)
	}
}

func TestGateway_CacheShortCircuits(t *testing.T) {
	eng := &scriptedEngine{text: "cached answer"}
	g := New(eng)

	req := Request{Role: domain.RoleCFO, Scenario: "topic", Context: "ctx"}

	first, err := g.Respond(context.Background(), req)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	second, err := g.Respond(context.Background(), req)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if first != second {
		t.Error("second Respond() should return the cached response")
	}
	if got := eng.calls.Load(); got != 1 {
		t.Errorf("engine calls = %d, want 1", got)
	}

	// A different context misses the cache.
	req.Context = "ctx plus a new round"
	if _, err := g.Respond(context.Background(), req); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got := eng.calls.Load(); got != 2 {
		t.Errorf("engine calls = %d, want 2", got)
	}
}

func TestGateway_TimeoutMapsToTaxonomy(t *testing.T) {
	eng := &scriptedEngine{text: "late", delay: time.Second}
	g := New(eng, WithTimeout(20*time.Millisecond))

	_, err := g.Respond(context.Background(), Request{Role: domain.RoleCTO, Scenario: "s"})
	if err == nil {
		t.Fatal("Respond() error = nil, want timeout")
	}
	var ae *domain.AgentError
	if !errors.As(err, &ae) {
		t.Fatalf("error is %T, want *domain.AgentError", err)
	}
	if ae.Type != domain.ErrorTypeTimeout {
		t.Errorf("error type = %s, want timeout", ae.Type)
	}
	if ae.Role != domain.RoleCTO {
		t.Errorf("error role = %s, want cto", ae.Role)
	}
}

func TestGateway_DemoMode(t *testing.T) {
	eng := &scriptedEngine{err: domain.ErrProviderUnavailable("down")}
	g := New(eng)

	// Demo requests never touch the real engine.
	resp, err := g.Respond(context.Background(), Request{Role: domain.RoleCEO, Scenario: "s", Demo: true})
	if err != nil {
		t.Fatalf("Respond(demo) error = %v", err)
	}
	if resp.Model != "demo" {
		t.Errorf("Model = %q, want demo", resp.Model)
	}
	if got := eng.calls.Load(); got != 0 {
		t.Errorf("engine calls = %d, want 0 for demo mode", got)
	}
}

func TestGateway_DemoFallbackOnFailure(t *testing.T) {
	eng := &scriptedEngine{err: domain.ErrProviderUnavailable("down")}
	failing := &scriptedEngine{err: domain.ErrInternal("canned store corrupt")}
	g := New(eng, WithDemoEngine(failing))

	// A demo caller whose demo engine fails still gets the fixed per-role
	// text, never an error.
	resp, err := g.Respond(context.Background(), Request{Role: domain.RoleHR, Scenario: "s2", Demo: true})
	if err != nil {
		t.Fatalf("Respond(demo) error = %v, want canned fallback", err)
	}
	if resp == nil || resp.Text == "" {
		t.Fatal("Respond(demo) should serve canned text on failure")
	}
	if resp.Model != "demo" {
		t.Errorf("Model = %q, want demo", resp.Model)
	}
	if got := eng.calls.Load(); got != 0 {
		t.Errorf("real engine calls = %d, want 0 for demo caller", got)
	}

	// Non-demo callers get the error, never canned data.
	_, err = g.Respond(context.Background(), Request{Role: domain.RoleHR, Scenario: "s3"})
	if err == nil {
		t.Fatal("Respond() error = nil, want propagated provider error")
	}
}

func TestGateway_ParsesMetadataBlock(t *testing.T) {
	eng := &scriptedEngine{text: "Answer.\n---METADATA---\n{\"confidence_level\":\"low\"}\n---END_METADATA---"}
	g := New(eng)

	resp, err := g.Respond(context.Background(), Request{Role: domain.RoleCEO, Scenario: "s"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Metadata == nil {
		t.Fatal("Metadata = nil, want parsed block")
	}
	if resp.Metadata.ConfidenceLevel != "low" {
		t.Errorf("ConfidenceLevel = %q, want low", resp.Metadata.ConfidenceLevel)
	}
	if strings.Contains(resp.Text, domain.MetadataBlockStart) {
		t.Errorf("Text still carries the metadata block: %q", resp.Text)
	}
}

func TestBuildPrompt_Layering(t *testing.T) {
	bundle := &evidence.Bundle{
		Items: []domain.EvidenceItem{
			{Type: domain.EvidenceDocument, Source: "plan.pdf", Content: "grow 20%", Relevance: 0.9, Citation: "[1] plan.pdf"},
		},
		Advice: map[domain.Role]string{domain.RoleCEO: "partner locally"},
	}

	prompt := BuildPrompt(domain.RoleCEO, "Expand?", "CFO said no.", bundle)

	for _, want := range []string{
		"You are the CEO",
		"SCENARIO:\nExpand?",
		"DISCUSSION SO FAR:\nCFO said no.",
		"RETRIEVED EVIDENCE:",
		"[1] plan.pdf",
		"ADVICE FROM PAST DECISIONS:",
		domain.MetadataBlockStart,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// No evidence: no metadata footer.
	bare := BuildPrompt(domain.RoleCEO, "Expand?", "", &evidence.Bundle{})
	if strings.Contains(bare, domain.MetadataBlockStart) {
		t.Error("metadata footer should only appear when evidence is present")
	}
}

func TestBuildPrompt_EvidenceReusedVerbatim(t *testing.T) {
	bundle := &evidence.Bundle{
		Items: []domain.EvidenceItem{
			{Type: domain.EvidenceDocument, Source: "a.pdf", Content: "alpha", Relevance: 0.5, Citation: "[1] a.pdf"},
		},
	}
	block := bundle.PromptBlock()

	first := BuildPrompt(domain.RoleCEO, "q", "", bundle)
	second := BuildPrompt(domain.RoleCFO, "q", "round one happened", bundle)
	if !strings.Contains(first, block) || !strings.Contains(second, block) {
		t.Error("every prompt must embed the byte-identical evidence block")
	}
}
