// Package mongotext adapts a MongoDB text-indexed collection to the
// retrieval.UpstreamClient interface via $text / $meta textScore.
package mongotext

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/miethe/MeatyMusic-sub000/internal/retrieval"
)

// Backend queries one collection assumed to carry a text index on
// textField, sorting by Mongo's own textScore relevance.
type Backend struct {
	collection *mongo.Collection
	textField  string
	timeField  string
}

// NewBackend wraps an open collection handle.
func NewBackend(collection *mongo.Collection, textField, timeField string) *Backend {
	return &Backend{collection: collection, textField: textField, timeField: timeField}
}

var _ retrieval.UpstreamClient = (*Backend)(nil)

func (b *Backend) Capabilities() []string {
	return []string{"full_text_search", "document_store"}
}

func (b *Backend) Search(ctx context.Context, query string, topK int, seed int64) ([]retrieval.Candidate, error) {
	limit := int64(topK)
	if limit <= 0 {
		limit = 20
	}

	filter := bson.M{"$text": bson.M{"$search": query}}
	projection := bson.M{"score": bson.M{"$meta": "textScore"}}
	opts := options.Find().
		SetProjection(projection).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(limit)

	cursor, err := b.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongotext find: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []retrieval.Candidate
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("mongotext decode: %w", err)
		}

		text, _ := raw[b.textField].(string)
		score, _ := raw["score"].(float64)
		var ts time.Time
		if t, ok := raw[b.timeField].(primitive.DateTime); ok {
			ts = t.Time()
		}

		metadata := map[string]interface{}{}
		for k, v := range raw {
			if k == "score" || k == "_id" || k == b.textField {
				continue
			}
			metadata[k] = v
		}

		candidates = append(candidates, retrieval.Candidate{
			Text:      text,
			Score:     score,
			Metadata:  metadata,
			Timestamp: ts,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongotext cursor: %w", err)
	}
	return candidates, nil
}
