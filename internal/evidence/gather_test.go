package evidence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/execboard/boardroom/internal/domain"
)

type fakeSearcher struct {
	docs []Document
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts SearchOptions) ([]Document, error) {
	return f.docs, f.err
}

type fakeMarket struct {
	snap *MarketSnapshot
	err  error
}

func (f *fakeMarket) Fetch(ctx context.Context, watchlist []string) (*MarketSnapshot, error) {
	return f.snap, f.err
}

type fakeAdvisor struct {
	advice map[domain.Role]string
	err    error
}

func (f *fakeAdvisor) Advise(ctx context.Context, role domain.Role, context string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.advice[role], nil
}

func TestGatherer_AllProviders(t *testing.T) {
	g := NewGatherer(
		WithSearcher(&fakeSearcher{docs: []Document{
			{ID: "d1", Source: "q3-report.pdf", Text: "Revenue grew 12%", Score: 0.85},
		}}),
		WithMarketFetcher(&fakeMarket{snap: &MarketSnapshot{
			Indices:   map[string]float64{"SPX": 5100},
			Timestamp: time.Now(),
		}}),
		WithAdvisor(&fakeAdvisor{advice: map[domain.Role]string{
			domain.RoleCEO: "past expansions succeeded with local partners",
		}}),
	)

	bundle := g.Gather(context.Background(), "expand to Europe?",
		[]domain.Role{domain.RoleCEO, domain.RoleCFO}, nil, SearchOptions{TopK: 5})

	if len(bundle.Items) != 1 {
		t.Fatalf("Items = %d, want 1", len(bundle.Items))
	}
	if bundle.Items[0].Type != domain.EvidenceDocument {
		t.Errorf("Type = %s, want document", bundle.Items[0].Type)
	}
	if bundle.Items[0].Reliability != 0.9 {
		t.Errorf("Reliability = %v, want document prior 0.9", bundle.Items[0].Reliability)
	}
	if bundle.Market == nil {
		t.Error("Market = nil, want snapshot")
	}
	if bundle.Advice[domain.RoleCEO] == "" {
		t.Error("Advice[ceo] empty, want advice")
	}
	if bundle.Advice[domain.RoleCFO] != "" {
		t.Error("Advice[cfo] should be empty")
	}
	if !bundle.HasEvidence() {
		t.Error("HasEvidence() = false, want true")
	}
}

func TestGatherer_FailuresAreOmitted(t *testing.T) {
	g := NewGatherer(
		WithSearcher(&fakeSearcher{err: errors.New("index down")}),
		WithMarketFetcher(&fakeMarket{err: errors.New("feed down")}),
		WithAdvisor(&fakeAdvisor{err: errors.New("memory down")}),
	)

	bundle := g.Gather(context.Background(), "topic", []domain.Role{domain.RoleCEO}, nil, SearchOptions{})

	if len(bundle.Items) != 0 || bundle.Market != nil || len(bundle.Advice) != 0 {
		t.Errorf("failed providers should contribute nothing: %+v", bundle)
	}
	if bundle.HasEvidence() {
		t.Error("HasEvidence() = true, want false")
	}
	if bundle.PromptBlock() != "" {
		t.Error("PromptBlock() should be empty without documents")
	}
}

func TestGatherer_NoProviders(t *testing.T) {
	bundle := NewGatherer().Gather(context.Background(), "topic", nil, nil, SearchOptions{})
	if bundle.HasEvidence() {
		t.Error("HasEvidence() = true, want false")
	}
}

func TestBundle_Blocks(t *testing.T) {
	b := &Bundle{
		Items: []domain.EvidenceItem{
			{Type: domain.EvidenceDocument, Source: "memo.pdf", Content: "cut costs", Relevance: 0.7, Citation: "[1] memo.pdf"},
		},
		Market: &MarketSnapshot{
			Stocks: map[string]float64{"ACME": 41.2},
			News:   []string{"rates unchanged"},
		},
		Advice: map[domain.Role]string{domain.RoleCFO: "watch burn rate"},
	}

	pb := b.PromptBlock()
	if !strings.Contains(pb, "[1] memo.pdf") || !strings.Contains(pb, "cut costs") {
		t.Errorf("PromptBlock() = %q", pb)
	}
	mb := b.MarketBlock()
	if !strings.Contains(mb, "ACME=41.20") || !strings.Contains(mb, "rates unchanged") {
		t.Errorf("MarketBlock() = %q", mb)
	}
	if ab := b.AdviceBlock(domain.RoleCFO); !strings.Contains(ab, "watch burn rate") {
		t.Errorf("AdviceBlock(cfo) = %q", ab)
	}
	if ab := b.AdviceBlock(domain.RoleCEO); ab != "" {
		t.Errorf("AdviceBlock(ceo) = %q, want empty", ab)
	}
	if got := b.Citations(); len(got) != 1 || got[0] != "[1] memo.pdf" {
		t.Errorf("Citations() = %v", got)
	}
}
