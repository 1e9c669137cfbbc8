// Package evidence gathers supporting material for a discussion session and
// renders it into prompt-ready blocks. Evidence is fetched once per session
// and shared read-only across all rounds and roles.
package evidence

import (
	"context"
	"time"

	"github.com/execboard/boardroom/internal/domain"
)

// SearchOptions bound a document search.
type SearchOptions struct {
	TopK     int
	MinScore float64
	// UserScope restricts results to documents visible to the requesting
	// user, when the backing index is multi-tenant.
	UserScope string
}

// Document is one retrieved excerpt with its relevance score.
type Document struct {
	ID     string
	Source string
	Text   string
	Score  float64 // [0,1]
}

// Searcher is the document retrieval contract. May return an empty list;
// failures are treated as "no evidence available".
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Document, error)
}

// MarketSnapshot is the market intelligence payload.
type MarketSnapshot struct {
	Indices           map[string]float64 `json:"indices"`
	Stocks            map[string]float64 `json:"stocks"`
	News              []string           `json:"news"`
	SectorPerformance map[string]float64 `json:"sector_performance"`
	Timestamp         time.Time          `json:"timestamp"`
}

// MarketFetcher is the market data contract. Failure is treated as "no
// market context".
type MarketFetcher interface {
	Fetch(ctx context.Context, watchlist []string) (*MarketSnapshot, error)
}

// Advisor is the memory-derived advice contract. Best-effort; an empty
// string means no advice.
type Advisor interface {
	Advise(ctx context.Context, role domain.Role, context string) (string, error)
}

// Bundle is the evidence gathered once per session. It must not be mutated
// after Gather returns; every role's prompt in every round is derived from
// the same bundle so agents share a consistent view of current evidence.
type Bundle struct {
	Items  []domain.EvidenceItem
	Market *MarketSnapshot
	// Advice maps each participant role to its memory-derived note.
	Advice map[domain.Role]string
}

// HasEvidence reports whether any document or market material was gathered.
// Structured metadata is only requested from the model when this holds.
func (b *Bundle) HasEvidence() bool {
	return b != nil && (len(b.Items) > 0 || b.Market != nil)
}

// Citations returns the citation strings of all gathered items, in order.
func (b *Bundle) Citations() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		out = append(out, it.Citation)
	}
	return out
}
