package evidence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/execboard/boardroom/internal/domain"
)

// Gatherer fetches all session evidence up front. Each provider is optional
// and best-effort: a failed or absent provider contributes nothing and never
// aborts the session.
type Gatherer struct {
	searcher Searcher
	market   MarketFetcher
	advisor  Advisor
	logger   *slog.Logger
}

// GatherOption configures a Gatherer.
type GatherOption func(*Gatherer)

// WithSearcher sets the document retrieval provider.
func WithSearcher(s Searcher) GatherOption {
	return func(g *Gatherer) { g.searcher = s }
}

// WithMarketFetcher sets the market data provider.
func WithMarketFetcher(m MarketFetcher) GatherOption {
	return func(g *Gatherer) { g.market = m }
}

// WithAdvisor sets the memory-derived advice provider.
func WithAdvisor(a Advisor) GatherOption {
	return func(g *Gatherer) { g.advisor = a }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GatherOption {
	return func(g *Gatherer) { g.logger = logger }
}

// NewGatherer creates a Gatherer.
func NewGatherer(opts ...GatherOption) *Gatherer {
	g := &Gatherer{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather fetches documents, market data, and per-role advice for the topic.
// Called once per session; the returned bundle is passed down by reference
// and never refetched by individual role calls.
func (g *Gatherer) Gather(ctx context.Context, topic string, roles []domain.Role, watchlist []string, opts SearchOptions) *Bundle {
	bundle := &Bundle{Advice: make(map[domain.Role]string)}

	if g.searcher != nil {
		docs, err := g.searcher.Search(ctx, topic, opts)
		if err != nil {
			g.logger.Warn("document search failed, continuing without documents",
				slog.String("error", err.Error()))
		} else {
			for i, doc := range docs {
				bundle.Items = append(bundle.Items, domain.EvidenceItem{
					Type:        domain.EvidenceDocument,
					Source:      doc.Source,
					Content:     doc.Text,
					Relevance:   doc.Score,
					Reliability: domain.EvidenceDocument.ReliabilityPrior(),
					Citation:    fmt.Sprintf("[%d] %s", i+1, doc.Source),
				})
			}
		}
	}

	if g.market != nil {
		snap, err := g.market.Fetch(ctx, watchlist)
		if err != nil {
			g.logger.Warn("market data fetch failed, continuing without market context",
				slog.String("error", err.Error()))
		} else {
			bundle.Market = snap
		}
	}

	if g.advisor != nil {
		for _, role := range roles {
			advice, err := g.advisor.Advise(ctx, role, topic)
			if err != nil {
				g.logger.Warn("advice lookup failed",
					slog.String("role", string(role)),
					slog.String("error", err.Error()))
				continue
			}
			if advice != "" {
				bundle.Advice[role] = advice
			}
		}
	}

	return bundle
}
