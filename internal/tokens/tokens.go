// Package tokens provides approximate token counting for generated
// responses, used to size the length measure on agent responses.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// charsPerTokenEstimate is the fallback ratio when no encoding is available.
const charsPerTokenEstimate = 4

// Counter counts tokens for a given model, caching codecs per encoding.
type Counter struct {
	mu     sync.Mutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		// Most likely encoding for unknown and future models.
		return tokenizer.O200kBase
	}
}

func (c *Counter) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if codec, ok := c.codecs[enc]; ok {
		return codec, nil
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, err
	}
	c.codecs[enc] = codec
	return codec, nil
}

// Count returns the approximate token count of text for the given model.
// Falls back to a character-ratio estimate when the encoding cannot be
// loaded.
func (c *Counter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	codec, err := c.codec(encodingFor(model))
	if err != nil {
		return (len(text) + charsPerTokenEstimate - 1) / charsPerTokenEstimate
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return (len(text) + charsPerTokenEstimate - 1) / charsPerTokenEstimate
	}
	return len(ids)
}
