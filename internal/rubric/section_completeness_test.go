package rubric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateSectionCompletenessAllPresent(t *testing.T) {
	lyrics := Lyrics{Sections: []Section{
		{Name: "verse_1", Lines: []string{"line one", "line two"}},
		{Name: "chorus", Lines: []string{"hook one", "hook two"}},
	}}
	score, explanation, details := calculateSectionCompleteness(lyrics, []string{"Verse", "Chorus"})
	assert.Equal(t, 1.0, score)
	assert.Contains(t, explanation, "All required sections present")
	assert.Empty(t, details.MissingSections)
}

func TestCalculateSectionCompletenessMissingSection(t *testing.T) {
	lyrics := Lyrics{Sections: []Section{
		{Name: "verse_1", Lines: []string{"line one", "line two"}},
	}}
	score, explanation, details := calculateSectionCompleteness(lyrics, []string{"Verse", "Chorus"})
	assert.Equal(t, 0.5, score)
	assert.Contains(t, explanation, "Missing required sections: chorus")
	assert.Equal(t, []string{"chorus"}, details.MissingSections)
}

func TestCalculateSectionCompletenessPenalizesSparseSection(t *testing.T) {
	lyrics := Lyrics{Sections: []Section{
		{Name: "verse_1", Lines: []string{"only one line"}},
		{Name: "chorus", Lines: []string{"hook one", "hook two"}},
	}}
	score, _, details := calculateSectionCompleteness(lyrics, []string{"Verse", "Chorus"})
	assert.InDelta(t, 0.9, score, 0.0001)
	assert.Equal(t, []string{"verse"}, details.SectionsBelowMin)
}

func TestCalculateSectionCompletenessNoSections(t *testing.T) {
	score, explanation, _ := calculateSectionCompleteness(Lyrics{}, []string{"Verse"})
	assert.Equal(t, 0.0, score)
	assert.Equal(t, "No sections found", explanation)
}

func TestNormalizeSectionTypePrechorusResolvesToChorus(t *testing.T) {
	// "chorus" substring matches before the pre+chorus branch is ever
	// reached, so any name containing it (including "prechorus") is
	// classified as plain chorus.
	assert.Equal(t, "chorus", normalizeSectionType("pre-chorus"))
}
