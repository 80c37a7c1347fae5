package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfanityTaxonomySortsCategories(t *testing.T) {
	path := writeTemp(t, "profanity.json", `{
		"categories": {"mild": ["damn", "ass", "crap"]},
		"thresholds": {"clean": {"max_mild_count": 0, "max_score": 0.0}}
	}`)
	tax, err := LoadProfanityTaxonomy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ass", "crap", "damn"}, tax.Categories["mild"])
	assert.Equal(t, 0.25, tax.SeverityWeights["mild"])
}

func TestLoadPIITaxonomySkipsNonListAllowlistEntries(t *testing.T) {
	path := writeTemp(t, "pii.json", `{
		"patterns": {"email": {"regex": ".*", "placeholder": "[EMAIL]", "confidence": 0.95}},
		"allowlist": {"brands": ["Acme"], "description": "free text, not a list"}
	}`)
	tax, err := LoadPIITaxonomy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, tax.Allowlist["brands"])
	_, hasDescription := tax.Allowlist["description"]
	assert.False(t, hasDescription)
	assert.Equal(t, 0.7, tax.Validation.MinConfidenceThreshold)
}

func TestLoadArtistRegistryBuildsIndexes(t *testing.T) {
	path := writeTemp(t, "artists.json", `{
		"living_artists": {
			"pop": [{"name": "Taylor Swift", "aliases": ["TSwift"], "generic_description": "pop-influenced storytelling vocals", "style_tags": ["pop"]}]
		},
		"fuzzy_matching": {"enabled": true, "min_similarity_threshold": 0.85}
	}`)
	reg, err := LoadArtistRegistry(path)
	require.NoError(t, err)

	artist, genre, found := reg.Lookup("taylor swift")
	require.True(t, found)
	assert.Equal(t, "pop", genre)
	assert.Equal(t, "Taylor Swift", artist.Name)

	_, _, found = reg.Lookup("TSwift")
	assert.True(t, found)
}

func TestParseBlueprintExtractsTempoFormAndLength(t *testing.T) {
	md := "**Tempo:** Most pop hits fall between **95–130 BPM**\n\n**Form:** **Verse → Chorus → Verse → Chorus → Bridge → Chorus**\n\nMost hits run **2.5–3.5 minutes**\n"
	bp := ParseBlueprint("pop", md)
	assert.Equal(t, 95, bp.Rules.TempoBPMMin)
	assert.Equal(t, 130, bp.Rules.TempoBPMMax)
	assert.Equal(t, []string{"Verse", "Chorus", "Bridge"}, bp.Rules.RequiredSections)
	assert.Equal(t, 2.5, bp.Rules.LengthMinutesMin)
	assert.Equal(t, 3.5, bp.Rules.LengthMinutesMax)
	assert.Equal(t, DefaultRubricWeights, bp.Weights)
}

func TestParseBlueprintDefaultsSectionsWhenFormMissing(t *testing.T) {
	bp := ParseBlueprint("ambient", "no structural markers here")
	assert.Equal(t, []string{"Verse", "Chorus"}, bp.Rules.RequiredSections)
}

func TestLoadRubricOverridesMissingFileFallsBackToEmpty(t *testing.T) {
	overrides, err := LoadRubricOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, overrides.Overrides)
}

func TestLoadRubricOverridesRejectsBadWeightSum(t *testing.T) {
	path := writeTemp(t, "overrides.yaml", `
overrides:
  edm:
    weights:
      hook_density: 0.5
      singability: 0.5
      rhyme_tightness: 0.5
      section_completeness: 0.1
      profanity_score: 0.1
`)
	_, err := LoadRubricOverrides(path)
	assert.Error(t, err)
}

func TestResolvePrefersEnabledABTestOverGenreOverride(t *testing.T) {
	overrides := &RubricOverrides{
		Overrides: map[string]GenreOverride{
			"pop": {Weights: map[string]float64{"hook_density": 0.9, "singability": 0.025, "rhyme_tightness": 0.025, "section_completeness": 0.025, "profanity_score": 0.025}},
		},
		ABTests: map[string]ABTest{
			"exp1": {
				Name: "hook-boost", Enabled: true, Genres: []string{"pop"},
				Overrides: GenreOverride{Weights: map[string]float64{"hook_density": 0.4, "singability": 0.15, "rhyme_tightness": 0.15, "section_completeness": 0.15, "profanity_score": 0.15}},
			},
		},
		Validation: defaultValidationRules(),
	}

	weights, _, source := overrides.Resolve("pop", DefaultRubricWeights, DefaultRubricThresholds)
	assert.Equal(t, "ab_test:exp1", source)
	assert.Equal(t, 0.4, weights.HookDensity)
}

func TestResolveFallsBackToBlueprintDefaultsForUnknownGenre(t *testing.T) {
	overrides := &RubricOverrides{Overrides: map[string]GenreOverride{}, ABTests: map[string]ABTest{}, Validation: defaultValidationRules()}
	weights, thresholds, source := overrides.Resolve("unknown-genre", DefaultRubricWeights, DefaultRubricThresholds)
	assert.Equal(t, "blueprint_default", source)
	assert.Equal(t, DefaultRubricWeights, weights)
	assert.Equal(t, DefaultRubricThresholds, thresholds)
}

func TestStoreReloadKeepsPreviousValueOnFailure(t *testing.T) {
	path := writeTemp(t, "profanity.json", `{"categories": {"mild": ["damn"]}}`)
	store, err := NewStore(path, LoadProfanityTaxonomy)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	err = store.Reload()
	assert.Error(t, err)
	assert.Equal(t, []string{"damn"}, store.Get().Categories["mild"])
}
