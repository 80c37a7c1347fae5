package rubric

import (
	"fmt"
	"sort"
	"strings"
)

// HookDensityDetails is the debug bundle for the hook_density metric.
type HookDensityDetails struct {
	TotalLines        int
	RepeatedLineCount int
	HookPhrases       []string
	PhraseCounts      map[string]int // top 10 by count, ties broken alphabetically
}

// calculateHookDensity scores hook_density = repeated_line_count /
// total_line_count, where a "hook" is a 3+-word phrase repeated
// somewhere in the lyrics and a line carrying one counts 1.5x if it sits
// in a chorus section.
func calculateHookDensity(lyrics Lyrics) (float64, string, HookDensityDetails) {
	if len(lyrics.Sections) == 0 {
		return 0.0, "No sections found in lyrics", HookDensityDetails{}
	}

	type taggedLine struct {
		text    string
		section string
	}
	var allLines []taggedLine
	for _, section := range lyrics.Sections {
		name := strings.ToLower(section.Name)
		for _, text := range nonEmptyLines(section.Lines) {
			allLines = append(allLines, taggedLine{text: text, section: name})
		}
	}
	if len(allLines) == 0 {
		return 0.0, "No lines found in lyrics", HookDensityDetails{}
	}

	totalLines := len(allLines)
	phraseCounts := map[string]int{}
	for _, l := range allLines {
		for _, phrase := range extractPhrases(l.text, 3) {
			phraseCounts[phrase]++
		}
	}

	repeatedPhrases := map[string]int{}
	for phrase, count := range phraseCounts {
		if count >= 2 {
			repeatedPhrases[phrase] = count
		}
	}

	repeatedLineCount := 0.0
	hookPhrases := map[string]bool{}
	for _, l := range allLines {
		lower := strings.ToLower(l.text)
		lineHasHook := false
		for phrase := range repeatedPhrases {
			if strings.Contains(lower, phrase) {
				lineHasHook = true
				hookPhrases[phrase] = true
			}
		}
		if lineHasHook {
			if strings.Contains(l.section, "chorus") {
				repeatedLineCount += 1.5
			} else {
				repeatedLineCount += 1.0
			}
		}
	}

	score := repeatedLineCount / float64(totalLines)
	if score > 1.0 {
		score = 1.0
	}

	hookList := make([]string, 0, len(hookPhrases))
	for phrase := range hookPhrases {
		hookList = append(hookList, phrase)
	}
	sort.Strings(hookList)

	explanation := fmt.Sprintf(
		"Hook density: %.2f. Found %d repeated phrases across %d lines (out of %d total). ",
		score, len(hookList), int(repeatedLineCount), totalLines,
	)
	switch {
	case score >= 0.7:
		explanation += "Strong hook presence."
	case score >= 0.5:
		explanation += "Moderate hook presence."
	case score >= 0.3:
		explanation += "Weak hook presence - consider adding more repetition."
	default:
		explanation += "Very weak hook presence - needs memorable repeated phrases."
	}

	details := HookDensityDetails{
		TotalLines:        totalLines,
		RepeatedLineCount: int(repeatedLineCount),
		HookPhrases:       hookList,
		PhraseCounts:      topPhraseCounts(repeatedPhrases, 10),
	}
	return score, explanation, details
}

func topPhraseCounts(counts map[string]int, limit int) map[string]int {
	type entry struct {
		phrase string
		count  int
	}
	items := make([]entry, 0, len(counts))
	for phrase, count := range counts {
		items = append(items, entry{phrase, count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].phrase < items[j].phrase
	})
	if len(items) > limit {
		items = items[:limit]
	}
	out := make(map[string]int, len(items))
	for _, it := range items {
		out[it.phrase] = it.count
	}
	return out
}
