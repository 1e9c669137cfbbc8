package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/execboard/boardroom/internal/domain"
)

// CacheTTL is how long a generated response may be served from cache.
const CacheTTL = 30 * time.Minute

// SharedCache is the slower second cache tier, typically backed by an
// external store shared across processes. Implementations must be safe for
// concurrent use.
type SharedCache interface {
	Get(ctx context.Context, key string) (*domain.AgentResponse, bool)
	Set(ctx context.Context, key string, resp *domain.AgentResponse, ttl time.Duration)
}

// cacheKey derives the lookup key from everything that shapes the prompt.
// Collisions across sessions are acceptable only when the content is
// identical, which the hash guarantees.
func cacheKey(role domain.Role, scenario, discussionContext string) string {
	h := sha256.New()
	h.Write([]byte(role))
	h.Write([]byte{0})
	h.Write([]byte(scenario))
	h.Write([]byte{0})
	h.Write([]byte(discussionContext))
	return hex.EncodeToString(h.Sum(nil))
}
