// Package retrieval implements the Deterministic Pinned Retriever: given a
// source, query, top_k, and seed, it always returns the same chunk
// sequence, and any chunk it has ever returned can be fetched again by its
// content hash alone. The upstream call itself (the actual knowledge
// backend) is an external collaborator behind the UpstreamClient interface
// — this package owns only the scope-validation, filtering, hashing, and
// caching steps around that call.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
)

// Candidate is one result as returned by an upstream server, before
// filtering, truncation, or hashing.
type Candidate struct {
	Text      string
	Score     float64
	Metadata  map[string]interface{}
	Timestamp time.Time
}

// Chunk is a Candidate that survived filtering and was assigned a content
// hash, the unit this package caches and serves by hash.
type Chunk struct {
	Text        string
	Score       float64
	Metadata    map[string]interface{}
	Timestamp   time.Time
	ContentHash string
	SourceID    uuid.UUID
}

// UpstreamClient is the narrow surface a knowledge backend must expose to
// be pinned: an ordered candidate list for a seeded query, and the
// capability names it supports (used to validate a source's configured
// scopes before ever dialing out).
type UpstreamClient interface {
	Capabilities() []string
	Search(ctx context.Context, query string, topK int, seed int64) ([]Candidate, error)
}

// Source is one configured knowledge source the retriever can pull from.
type Source struct {
	ID        uuid.UUID
	Active    bool
	Scopes    []string
	AllowList []string
	DenyList  []string
	Weight    float64
	Client    UpstreamClient
}

// HashIndex is an optional, host-provided persistent lookup for chunks no
// longer present in the process-local cache (e.g. after a restart).
type HashIndex interface {
	Lookup(ctx context.Context, sourceID uuid.UUID, hash string) (Chunk, bool, error)
}

// DeterministicRetriever retrieves top-k chunks per source, caching every
// chunk it produces by content hash for later lookup.
type DeterministicRetriever struct {
	mu        sync.RWMutex
	sources   map[uuid.UUID]*Source
	cache     sync.Map // cacheKey(sourceID, hash) -> Chunk
	hashIndex HashIndex
}

// NewDeterministicRetriever builds a retriever with no registered sources.
// hashIndex may be nil when no persistent fallback is available.
func NewDeterministicRetriever(hashIndex HashIndex) *DeterministicRetriever {
	return &DeterministicRetriever{
		sources:   make(map[uuid.UUID]*Source),
		hashIndex: hashIndex,
	}
}

// RegisterSource adds or replaces a source by ID.
func (r *DeterministicRetriever) RegisterSource(source *Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.ID] = source
}

func (r *DeterministicRetriever) source(id uuid.UUID) (*Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	return s, ok
}

// Retrieve runs the full pinned-retrieval pipeline for one source: verify
// active, validate scopes against advertised capabilities, call upstream
// with (query, topK, seed), filter, truncate, hash, cache.
func (r *DeterministicRetriever) Retrieve(ctx context.Context, sourceID uuid.UUID, query string, topK int, seed int64) ([]Chunk, error) {
	source, ok := r.source(sourceID)
	if !ok {
		return nil, errs.New(errs.CodeEntityNotFound, "retrieve", fmt.Sprintf("unknown source %s", sourceID))
	}
	if !source.Active {
		return nil, errs.New(errs.CodeBadRequest, "retrieve", fmt.Sprintf("source %s is not active", sourceID))
	}

	if err := validateScopes(source); err != nil {
		return nil, err
	}

	candidates, err := source.Client.Search(ctx, query, topK, seed)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "retrieve", "upstream search failed", err)
	}

	filtered := filterCandidates(candidates, source.AllowList, source.DenyList)
	sortCandidates(sourceID, filtered)
	if topK > 0 && len(filtered) > topK {
		filtered = filtered[:topK]
	}

	chunks := make([]Chunk, 0, len(filtered))
	for _, c := range filtered {
		chunk := Chunk{
			Text:        c.Text,
			Score:       c.Score,
			Metadata:    c.Metadata,
			Timestamp:   c.Timestamp,
			ContentHash: contentHash(sourceID, c.Text, c.Timestamp),
			SourceID:    sourceID,
		}
		r.cache.Store(cacheKey(sourceID, chunk.ContentHash), chunk)
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// RetrieveByHash returns the chunk previously produced for sourceID with
// the given content hash, consulting the in-process cache first and then
// any configured persistent hash index.
func (r *DeterministicRetriever) RetrieveByHash(ctx context.Context, sourceID uuid.UUID, hash string) (Chunk, bool, error) {
	if !isValidHash(hash) {
		return Chunk{}, false, errs.New(errs.CodeBadRequest, "retrieve_by_hash", "content hash must be 64 hex characters")
	}

	if v, ok := r.cache.Load(cacheKey(sourceID, hash)); ok {
		return v.(Chunk), true, nil
	}
	if r.hashIndex == nil {
		return Chunk{}, false, nil
	}
	return r.hashIndex.Lookup(ctx, sourceID, hash)
}

func validateScopes(source *Source) error {
	if len(source.Scopes) == 0 {
		return nil
	}
	capabilities := make(map[string]bool, len(source.Client.Capabilities()))
	for _, c := range source.Client.Capabilities() {
		capabilities[c] = true
	}
	for _, scope := range source.Scopes {
		if !capabilities[scope] {
			return errs.New(errs.CodeBadRequest, "retrieve",
				fmt.Sprintf("source %s declares unsupported scope %q", source.ID, scope))
		}
	}
	return nil
}

// filterCandidates applies deny-wins / allow-requires-one substring rules.
// With neither list configured, every candidate is accepted.
func filterCandidates(candidates []Candidate, allowList, denyList []string) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if containsAny(c.Text, denyList) {
			continue
		}
		if len(allowList) > 0 && !containsAny(c.Text, allowList) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func containsAny(text string, substrings []string) bool {
	for _, s := range substrings {
		if s != "" && strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// sortCandidates preserves upstream relevance order but breaks exact-score
// ties deterministically by text, per the reproducibility requirement
// (source_id is constant within a single source's Retrieve call).
func sortCandidates(sourceID uuid.UUID, candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Text < candidates[j].Text
	})
}

// SortChunks orders chunks from one or more sources by descending score,
// breaking exact-score ties by (source_id, text) lexicographically. Used
// when a caller combines chunks retrieved across multiple sources.
func SortChunks(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		si, sj := chunks[i].SourceID.String(), chunks[j].SourceID.String()
		if si != sj {
			return si < sj
		}
		return chunks[i].Text < chunks[j].Text
	})
}

func contentHash(sourceID uuid.UUID, text string, timestamp time.Time) string {
	h := sha256.New()
	h.Write([]byte(sourceID.String()))
	h.Write([]byte(text))
	h.Write([]byte(timestamp.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

func cacheKey(sourceID uuid.UUID, hash string) string {
	return sourceID.String() + ":" + hash
}

func isValidHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, r := range hash {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// NormalizeWeights scales a set of source weights by 1/S when their sum S
// exceeds 1.0, preserving proportions; weights summing to 1.0 or less are
// left unchanged.
func NormalizeWeights(weights map[uuid.UUID]float64) map[uuid.UUID]float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	out := make(map[uuid.UUID]float64, len(weights))
	if sum <= 1.0 || sum == 0 {
		for id, w := range weights {
			out[id] = w
		}
		return out
	}
	for id, w := range weights {
		out[id] = w / sum
	}
	return out
}
