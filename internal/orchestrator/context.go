package orchestrator

import "strings"

// maxContextChars bounds the accumulated cross-round context so long
// sessions do not grow prompts without limit. Oldest entries are dropped
// whole when the budget is exceeded.
const maxContextChars = 12000

// contextBuffer accumulates per-response context entries across rounds.
type contextBuffer struct {
	entries []string
	size    int
}

func newContextBuffer(initial string) *contextBuffer {
	b := &contextBuffer{}
	if initial != "" {
		b.append(initial)
	}
	return b
}

// append adds one entry, evicting the oldest entries when over budget. An
// entry larger than the whole budget is kept alone rather than dropped.
func (b *contextBuffer) append(entry string) {
	b.entries = append(b.entries, entry)
	b.size += len(entry)
	for b.size > maxContextChars && len(b.entries) > 1 {
		b.size -= len(b.entries[0])
		b.entries = b.entries[1:]
	}
}

func (b *contextBuffer) String() string {
	return strings.Join(b.entries, "\n\n")
}
