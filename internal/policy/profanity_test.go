package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
)

func testProfanityTaxonomy() *taxonomy.ProfanityTaxonomy {
	return &taxonomy.ProfanityTaxonomy{
		Categories: map[string][]string{
			"mild":    {"damn", "crap"},
			"strong":  {"badword"},
			"extreme": {"worstword"},
		},
		SeverityWeights: map[string]float64{"mild": 0.25, "moderate": 0.5, "strong": 0.75, "extreme": 1.0},
		Thresholds: map[string]taxonomy.ModeThreshold{
			"clean":            {MaxMildCount: 0, MaxModerateCount: 0, MaxStrongCount: 0, MaxExtremeCount: 0, MaxScore: 0.0},
			"mild_allowed":     {MaxMildCount: -1, MaxModerateCount: 0, MaxStrongCount: 0, MaxExtremeCount: 0, MaxScore: 0.3},
			"explicit":         {MaxMildCount: -1, MaxModerateCount: -1, MaxStrongCount: -1, MaxExtremeCount: -1, MaxScore: 1.0},
		},
		Whitelist: taxonomy.WhitelistConfig{Terms: []string{"damn fine assessment"}},
		Variations: taxonomy.VariationConfig{
			LeetspeakPatterns: map[string][]string{"a": {"4", "@"}, "o": {"0"}},
		},
	}
}

func TestDetectProfanityBreachesCleanThreshold(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	breached, violations := filter.DetectProfanity("that is a damn shame", ModeClean)
	require.True(t, breached)
	require.Len(t, violations, 1)
	assert.Equal(t, "damn", violations[0].Term)
	assert.Equal(t, "mild", violations[0].Severity)
}

func TestDetectProfanityAllowsUnderMildThreshold(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	breached, _ := filter.DetectProfanity("that is a damn shame", ModeMildAllowed)
	assert.False(t, breached)
}

func TestDetectProfanitySuppressesWhitelistedContext(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	_, violations := filter.DetectProfanity("what a damn fine assessment of the situation", ModeClean)
	for _, v := range violations {
		assert.NotEqual(t, "damn", v.Term)
	}
}

func TestDetectProfanityCatchesLeetspeakVariation(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	_, violations := filter.DetectProfanity("that is a d4mn shame", ModeClean)
	require.NotEmpty(t, violations)
	assert.Equal(t, "damn", violations[0].Term)
}

func TestCheckLyricsSectionsTagsSection(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	sections := []LyricsSection{
		{Name: "verse_1", Text: "a damn good day", Line: 1},
		{Name: "chorus", Text: "clean and bright", Line: 5},
	}
	breached, violations := filter.CheckLyricsSections(sections, ModeClean)
	require.True(t, breached)
	require.Len(t, violations, 1)
	assert.Equal(t, "verse_1", violations[0].Section)
}

func TestScoreCapsAtOne(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	score := filter.Score("worstword worstword worstword")
	assert.Equal(t, 1.0, score)
}

func TestScoreFromViolationsAveragesWeights(t *testing.T) {
	filter := NewProfanityFilter(testProfanityTaxonomy())
	violations := []ProfanityViolation{{Severity: "mild"}, {Severity: "strong"}}
	assert.InDelta(t, 0.5, filter.ScoreFromViolations(violations), 0.0001)
}
