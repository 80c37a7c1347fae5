package rubric

import (
	"fmt"
	"sort"
	"strings"
)

// SectionCompletenessDetails is the debug bundle for the
// section_completeness metric.
type SectionCompletenessDetails struct {
	RequiredSections  []string
	PresentSections   []string
	MissingSections   []string
	SectionLineCounts map[string]int
	SectionsBelowMin  []string
}

const minLinesPerSection = 2

// calculateSectionCompleteness scores |required present| / |required|,
// with a 0.1 penalty per required section present but carrying fewer
// than minLinesPerSection non-empty lines, clamped to [0,1].
func calculateSectionCompleteness(lyrics Lyrics, requiredSections []string) (float64, string, SectionCompletenessDetails) {
	if len(lyrics.Sections) == 0 {
		return 0.0, "No sections found", SectionCompletenessDetails{}
	}
	if len(requiredSections) == 0 {
		requiredSections = []string{"Verse", "Chorus"}
	}

	presentSet := map[string]bool{}
	lineCounts := map[string]int{}

	for _, section := range lyrics.Sections {
		sectionType := normalizeSectionType(section.Name)
		presentSet[sectionType] = true

		count := len(nonEmptyLines(section.Lines))
		if count > lineCounts[sectionType] {
			lineCounts[sectionType] = count
		}
	}

	requiredSet := map[string]bool{}
	for _, s := range requiredSections {
		requiredSet[normalizeSectionType(s)] = true
	}

	var missing, completed []string
	for sectionType := range requiredSet {
		if presentSet[sectionType] {
			completed = append(completed, sectionType)
		} else {
			missing = append(missing, sectionType)
		}
	}

	score := 1.0
	if len(requiredSet) > 0 {
		score = float64(len(completed)) / float64(len(requiredSet))
	}

	var belowMin []string
	for sectionType, count := range lineCounts {
		if count < minLinesPerSection && requiredSet[sectionType] {
			belowMin = append(belowMin, sectionType)
		}
	}
	sort.Strings(belowMin)

	if len(belowMin) > 0 {
		score -= float64(len(belowMin)) * 0.1
		if score < 0 {
			score = 0
		}
	}

	sort.Strings(missing)
	present := sortedKeys(presentSet)
	required := sortedKeys(requiredSet)

	explanation := fmt.Sprintf("Section completeness: %.2f. ", score)
	if len(missing) > 0 {
		explanation += fmt.Sprintf("Missing required sections: %s. ", strings.Join(missing, ", "))
	} else {
		explanation += "All required sections present. "
	}
	if len(belowMin) > 0 {
		explanation += fmt.Sprintf("Sections below minimum lines: %s.", strings.Join(belowMin, ", "))
	}

	details := SectionCompletenessDetails{
		RequiredSections:  required,
		PresentSections:   present,
		MissingSections:   missing,
		SectionLineCounts: lineCounts,
		SectionsBelowMin:  belowMin,
	}
	return score, explanation, details
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
