package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
)

func buildNormalizer(t *testing.T) *ArtistNormalizer {
	t.Helper()
	path := writeArtistFixture(t)
	loaded, err := taxonomy.LoadArtistRegistry(path)
	require.NoError(t, err)
	return NewArtistNormalizer(loaded)
}

func writeArtistFixture(t *testing.T) string {
	t.Helper()
	return writeTempFile(t, "artists.json", `{
		"living_artists": {
			"pop": [{"name": "Taylor Swift", "aliases": ["TSwift"], "generic_description": "pop-influenced storytelling vocals with confessional lyrics", "style_tags": ["pop", "confessional"]}]
		},
		"normalization_patterns": [
			{"pattern": "in the style of {artist}", "replacement": "{generic_description}"},
			{"pattern": "sounds like {artist}", "replacement": "{generic_description}"}
		],
		"fuzzy_matching": {"enabled": true, "min_similarity_threshold": 0.85}
	}`)
}

func TestDetectArtistReferencesFindsExactMatch(t *testing.T) {
	n := buildNormalizer(t)
	found, refs := n.DetectArtistReferences("write a song in the style of Taylor Swift")
	require.True(t, found)
	require.Len(t, refs, 1)
	assert.Equal(t, "Taylor Swift", refs[0].ArtistName)
	assert.Equal(t, "pop-influenced storytelling vocals with confessional lyrics", refs[0].GenericReplacement)
}

func TestDetectArtistReferencesMatchesAlias(t *testing.T) {
	n := buildNormalizer(t)
	found, refs := n.DetectArtistReferences("it sounds like TSwift")
	require.True(t, found)
	assert.Equal(t, "Taylor Swift", refs[0].ArtistName)
}

func TestNormalizeInfluencesIsIdempotent(t *testing.T) {
	n := buildNormalizer(t)
	once, _ := n.NormalizeInfluences("write a song in the style of Taylor Swift please")
	twice, changes := n.NormalizeInfluences(once)
	assert.Equal(t, once, twice)
	assert.Empty(t, changes)
}

func TestCheckPublicReleaseComplianceFlagsLivingArtist(t *testing.T) {
	n := buildNormalizer(t)
	compliant, violations := n.CheckPublicReleaseCompliance("in the style of Taylor Swift", false)
	assert.False(t, compliant)
	assert.NotEmpty(t, violations)
}

func TestCheckPublicReleaseComplianceAllowsWhenPermissive(t *testing.T) {
	n := buildNormalizer(t)
	compliant, violations := n.CheckPublicReleaseCompliance("in the style of Taylor Swift", true)
	assert.True(t, compliant)
	assert.Empty(t, violations)
}

func TestRatioSimilarityExactMatch(t *testing.T) {
	assert.Equal(t, 1.0, ratioSimilarity("taylor swift", "taylor swift"))
	assert.Greater(t, ratioSimilarity("taylor swft", "taylor swift"), 0.85)
}
