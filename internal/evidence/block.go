package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/execboard/boardroom/internal/domain"
)

// PromptBlock renders the gathered documents as a numbered citation block.
// Assembled once and reused verbatim for every role in every round.
func (b *Bundle) PromptBlock() string {
	if b == nil || len(b.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("RETRIEVED EVIDENCE:\n")
	for i, item := range b.Items {
		fmt.Fprintf(&sb, "[%d] %s (relevance %.2f)\n%s\n", i+1, item.Source, item.Relevance, item.Content)
	}
	return sb.String()
}

// MarketBlock renders the market snapshot for prompt inclusion.
func (b *Bundle) MarketBlock() string {
	if b == nil || b.Market == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("MARKET INTELLIGENCE:\n")
	writeSorted := func(label string, m map[string]float64) {
		if len(m) == 0 {
			return
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&sb, "%s:", label)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%.2f", k, m[k])
		}
		sb.WriteString("\n")
	}
	writeSorted("Indices", b.Market.Indices)
	writeSorted("Stocks", b.Market.Stocks)
	writeSorted("Sectors", b.Market.SectorPerformance)
	for _, headline := range b.Market.News {
		fmt.Fprintf(&sb, "News: %s\n", headline)
	}
	return sb.String()
}

// AdviceBlock renders the memory-derived note for one role.
func (b *Bundle) AdviceBlock(role domain.Role) string {
	if b == nil {
		return ""
	}
	advice := b.Advice[role]
	if advice == "" {
		return ""
	}
	return "ADVICE FROM PAST DECISIONS:\n" + advice + "\n"
}
