package orchestrator

import "strings"

// ConclusionHeuristic decides whether a round's responses indicate the
// discussion has converged. Implementations are best-effort signals, not
// authoritative semantic detectors; the orchestrator treats a positive
// result as permission to stop early, never as a correctness guarantee.
type ConclusionHeuristic interface {
	Concluded(texts []string) bool
}

// defaultConclusionTerms are the recommendation-indicating words scanned
// for. Known false-positive source: incidental use of a word like
// "decision" in an unrelated sentence triggers it.
var defaultConclusionTerms = []string{"recommend", "propose", "suggest", "decision"}

// KeywordHeuristic flags a round as concluded when any response contains a
// recommendation-indicating term, case-insensitively.
type KeywordHeuristic struct {
	terms []string
}

// NewKeywordHeuristic creates the default keyword matcher.
func NewKeywordHeuristic() *KeywordHeuristic {
	return &KeywordHeuristic{terms: defaultConclusionTerms}
}

// NewKeywordHeuristicWithTerms creates a matcher with custom terms.
func NewKeywordHeuristicWithTerms(terms []string) *KeywordHeuristic {
	return &KeywordHeuristic{terms: terms}
}

// Concluded implements ConclusionHeuristic.
func (h *KeywordHeuristic) Concluded(texts []string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, term := range h.terms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}
