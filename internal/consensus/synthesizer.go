// Package consensus merges the per-role responses of a finished discussion
// into a single recommendation with a qualitative confidence label.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/evidence"
	"github.com/execboard/boardroom/internal/gateway"
)

// Responder is the single facilitator call the synthesizer makes; satisfied
// by *gateway.Gateway.
type Responder interface {
	Respond(ctx context.Context, req gateway.Request) (*domain.AgentResponse, error)
}

// confidencePattern extracts the label from the facilitator's output.
var confidencePattern = regexp.MustCompile(`\*\*CONFIDENCE LEVEL:\*\*\s*(High|Medium|Low)`)

// synthesisTemplate fixes the sections the facilitator must produce.
const synthesisTemplate = `Synthesize the discussion below into a single recommendation with these sections:

**EXECUTIVE SUMMARY:**
**DOCUMENT-BACKED INSIGHTS:**
**CONSENSUS AREAS:**
**DISAGREEMENTS:**
**RECOMMENDED ACTION:**
**IMPLEMENTATION STEPS:**
**RISK MITIGATION:**
**SUCCESS METRICS:**
**CONFIDENCE LEVEL:** <High|Medium|Low>
`

// Option configures the Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = logger }
}

// Synthesizer produces consensus records.
type Synthesizer struct {
	responder Responder
	logger    *slog.Logger
}

// New creates a Synthesizer over the given responder.
func New(responder Responder, opts ...Option) *Synthesizer {
	s := &Synthesizer{responder: responder, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize merges the responses into one recommendation. It is only
// invoked with at least two successful responses; with fewer the sole
// response stands as the outcome and no synthesis runs (enforced by the
// caller, asserted here).
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, responses []*domain.AgentResponse, bundle *evidence.Bundle, demo bool) (*domain.ConsensusRecord, error) {
	if len(responses) < 2 {
		return nil, domain.ErrInvalidRequest("consensus requires at least two responses")
	}

	sourceCounts := countSources(responses)

	resp, err := s.responder.Respond(ctx, gateway.Request{
		Role:     domain.RoleFacilitator,
		Scenario: topic,
		Context:  buildDiscussionSummary(responses, sourceCounts) + "\n" + synthesisTemplate,
		Evidence: bundle,
		Demo:     demo,
	})
	if err != nil {
		return nil, err
	}

	label := domain.ConfidenceMedium
	if m := confidencePattern.FindStringSubmatch(resp.Text); m != nil {
		label = domain.ConfidenceLabel(m[1])
	} else {
		s.logger.Debug("no confidence marker in synthesis output, defaulting to Medium")
	}

	return &domain.ConsensusRecord{
		Recommendation: resp.Text,
		Confidence:     label,
		AgentCount:     len(responses),
		SourceCounts:   sourceCounts,
		CreatedAt:      time.Now(),
	}, nil
}

// countSources tallies how many contributing responses cited each evidence
// source.
func countSources(responses []*domain.AgentResponse) map[string]int {
	counts := make(map[string]int)
	for _, resp := range responses {
		if resp.Metadata == nil {
			continue
		}
		for _, src := range resp.Metadata.DataSources {
			counts[src]++
		}
	}
	return counts
}

// buildDiscussionSummary lists each role's full text and citations, plus the
// de-duplicated sources sorted by reference count descending.
func buildDiscussionSummary(responses []*domain.AgentResponse, sourceCounts map[string]int) string {
	var sb strings.Builder
	for _, resp := range responses {
		fmt.Fprintf(&sb, "%s:\n%s\n", strings.ToUpper(string(resp.Role)), resp.Text)
		if resp.Metadata != nil && len(resp.Metadata.DataSources) > 0 {
			fmt.Fprintf(&sb, "Cited: %s\n", strings.Join(resp.Metadata.DataSources, "; "))
		}
		sb.WriteString("\n")
	}

	if len(sourceCounts) > 0 {
		type sourceCount struct {
			source string
			count  int
		}
		sorted := make([]sourceCount, 0, len(sourceCounts))
		for src, n := range sourceCounts {
			sorted = append(sorted, sourceCount{src, n})
		}
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].count != sorted[j].count {
				return sorted[i].count > sorted[j].count
			}
			return sorted[i].source < sorted[j].source
		})
		sb.WriteString("REFERENCED SOURCES:\n")
		for _, sc := range sorted {
			fmt.Fprintf(&sb, "- %s (%d references)\n", sc.source, sc.count)
		}
	}
	return sb.String()
}
