// Package redistext adapts a Redis sorted set of pinned text chunks to the
// retrieval.UpstreamClient interface. Each member is a JSON-encoded
// document; its sorted-set score is used directly as relevance.
package redistext

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/miethe/MeatyMusic-sub000/internal/retrieval"
)

// Backend reads from one sorted-set key, highest stored score first, and
// reports each member's stored score as its relevance. The query text is
// not matched against the stored text.
type Backend struct {
	client *redis.Client
	key    string
}

// document is the JSON shape stored as each sorted-set member.
type document struct {
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewBackend wraps a Redis client scoped to one sorted-set key.
func NewBackend(client *redis.Client, key string) *Backend {
	return &Backend{client: client, key: key}
}

var _ retrieval.UpstreamClient = (*Backend)(nil)

func (b *Backend) Capabilities() []string {
	return []string{"full_text_search", "pinned_cache"}
}

func (b *Backend) Search(ctx context.Context, query string, topK int, seed int64) ([]retrieval.Candidate, error) {
	limit := int64(topK)
	if limit <= 0 {
		limit = 20
	}

	members, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redistext zrevrange: %w", err)
	}

	var candidates []retrieval.Candidate
	for _, member := range members {
		raw, ok := member.Member.(string)
		if !ok {
			continue
		}
		var doc document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("redistext unmarshal member: %w", err)
		}

		candidates = append(candidates, retrieval.Candidate{
			Text:      doc.Text,
			Score:     member.Score,
			Metadata:  doc.Metadata,
			Timestamp: doc.Timestamp,
		})
		if int64(len(candidates)) >= limit*4 {
			// Cap work done before the retriever's own filter/truncate
			// steps run; the retriever re-sorts and truncates to topK.
			break
		}
	}
	return candidates, nil
}
