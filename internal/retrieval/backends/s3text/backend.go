// Package s3text adapts an S3 prefix of plain-text objects to the
// retrieval.UpstreamClient interface, scoring each object by query term
// overlap since S3 has no native relevance ranking.
package s3text

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/miethe/MeatyMusic-sub000/internal/retrieval"
)

// Backend lists and scores objects under one bucket/prefix.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	// maxObjects bounds how many objects a single Search call will fetch
	// and score, to keep a query call bounded regardless of bucket size.
	maxObjects int32
}

// NewBackend wraps an S3 client scoped to one bucket and prefix.
// maxObjects defaults to 100 when zero.
func NewBackend(client *s3.Client, bucket, prefix string, maxObjects int32) *Backend {
	if maxObjects <= 0 {
		maxObjects = 100
	}
	return &Backend{client: client, bucket: bucket, prefix: prefix, maxObjects: maxObjects}
}

var _ retrieval.UpstreamClient = (*Backend)(nil)

func (b *Backend) Capabilities() []string {
	return []string{"full_text_search", "object_storage"}
}

func (b *Backend) Search(ctx context.Context, query string, topK int, seed int64) ([]retrieval.Candidate, error) {
	listOut, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.prefix),
		MaxKeys: aws.Int32(b.maxObjects),
	})
	if err != nil {
		return nil, fmt.Errorf("s3text list objects: %w", err)
	}

	terms := queryTerms(query)
	candidates := make([]retrieval.Candidate, 0, len(listOut.Contents))
	for _, obj := range listOut.Contents {
		getOut, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			return nil, fmt.Errorf("s3text get object %s: %w", aws.ToString(obj.Key), err)
		}

		body, err := io.ReadAll(getOut.Body)
		getOut.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("s3text read object %s: %w", aws.ToString(obj.Key), err)
		}

		text := string(bytes.TrimSpace(body))
		score := termOverlapScore(text, terms)
		if score == 0 {
			continue
		}

		var ts = aws.ToTime(obj.LastModified)
		candidates = append(candidates, retrieval.Candidate{
			Text:      text,
			Score:     score,
			Metadata:  map[string]interface{}{"key": aws.ToString(obj.Key), "bucket": b.bucket},
			Timestamp: ts,
		})
	}

	// Deterministic given identical bucket contents: sort by key so the
	// candidate order itself doesn't depend on S3's listing order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Metadata["key"].(string) < candidates[j].Metadata["key"].(string)
	})
	return candidates, nil
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func termOverlapScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matches := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}
