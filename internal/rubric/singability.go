package rubric

import "fmt"

// SingabilityDetails is the debug bundle for the singability metric.
type SingabilityDetails struct {
	SyllableConsistency    float64
	WordComplexity         float64
	LineLengthConsistency  float64
	AvgSyllablesPerLine    float64
	AvgComplexWordsPerLine float64
}

type lineSingability struct {
	syllableCount    int
	wordCount        int
	complexWordCount int
	charLength       int
}

func analyzeLineSingability(line string) lineSingability {
	words := wordPattern.FindAllString(line, -1)
	syllables, complexWords := 0, 0
	for _, w := range words {
		n := countSyllables(w)
		syllables += n
		if n > 3 {
			complexWords++
		}
	}
	return lineSingability{
		syllableCount:    syllables,
		wordCount:        len(words),
		complexWordCount: complexWords,
		charLength:       len([]rune(line)),
	}
}

// calculateSyllableConsistency scores syllable-count variance within each
// section type, normalized against an assumed max variance of 25 and
// averaged across section types that have 2+ lines.
func calculateSyllableConsistency(bySectionType map[string][]lineSingability) float64 {
	var variances []float64
	for _, lines := range bySectionType {
		if len(lines) < 2 {
			continue
		}
		counts := make([]float64, len(lines))
		for i, l := range lines {
			counts[i] = float64(l.syllableCount)
		}
		variances = append(variances, variance(counts))
	}
	if len(variances) == 0 {
		return 1.0
	}
	score := 1.0 - average(variances)/25.0
	if score < 0 {
		score = 0
	}
	return score
}

// calculateWordComplexity scores the inverse ratio of complex (>3
// syllable) words to total words, against an acceptable ratio of 0.3.
func calculateWordComplexity(lines []lineSingability) float64 {
	if len(lines) == 0 {
		return 1.0
	}
	totalWords, complexWords := 0, 0
	for _, l := range lines {
		totalWords += l.wordCount
		complexWords += l.complexWordCount
	}
	if totalWords == 0 {
		return 1.0
	}
	ratio := float64(complexWords) / float64(totalWords)
	score := 1.0 - ratio/0.3
	if score < 0 {
		score = 0
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// calculateLineLengthConsistency mirrors calculateSyllableConsistency
// over char length, normalized against an assumed max variance of 400.
func calculateLineLengthConsistency(bySectionType map[string][]lineSingability) float64 {
	var variances []float64
	for _, lines := range bySectionType {
		if len(lines) < 2 {
			continue
		}
		counts := make([]float64, len(lines))
		for i, l := range lines {
			counts[i] = float64(l.charLength)
		}
		variances = append(variances, variance(counts))
	}
	if len(variances) == 0 {
		return 1.0
	}
	score := 1.0 - average(variances)/400.0
	if score < 0 {
		score = 0
	}
	return score
}

// calculateSingability composes syllable consistency (0.4), word
// complexity (0.3), and line-length consistency (0.3) into one score.
func calculateSingability(lyrics Lyrics) (float64, string, SingabilityDetails) {
	if len(lyrics.Sections) == 0 {
		return 0.0, "No sections found", SingabilityDetails{}
	}

	bySectionType := map[string][]lineSingability{}
	var allLines []lineSingability

	for _, section := range lyrics.Sections {
		sectionType := normalizeSectionType(section.Name)
		for _, text := range nonEmptyLines(section.Lines) {
			data := analyzeLineSingability(text)
			bySectionType[sectionType] = append(bySectionType[sectionType], data)
			allLines = append(allLines, data)
		}
	}
	if len(allLines) == 0 {
		return 0.0, "No lines to analyze", SingabilityDetails{}
	}

	syllableScore := calculateSyllableConsistency(bySectionType)
	complexityScore := calculateWordComplexity(allLines)
	lineLengthScore := calculateLineLengthConsistency(bySectionType)

	score := syllableScore*0.4 + complexityScore*0.3 + lineLengthScore*0.3

	explanation := fmt.Sprintf("Singability: %.2f. ", score)
	switch {
	case score >= 0.7:
		explanation += "Highly singable with consistent phrasing."
	case score >= 0.5:
		explanation += "Moderately singable."
	default:
		explanation += "Low singability - consider simplifying phrasing."
	}

	totalSyllables, totalComplexWords := 0, 0
	for _, l := range allLines {
		totalSyllables += l.syllableCount
		totalComplexWords += l.complexWordCount
	}

	details := SingabilityDetails{
		SyllableConsistency:    syllableScore,
		WordComplexity:         complexityScore,
		LineLengthConsistency:  lineLengthScore,
		AvgSyllablesPerLine:    float64(totalSyllables) / float64(len(allLines)),
		AvgComplexWordsPerLine: float64(totalComplexWords) / float64(len(allLines)),
	}
	return score, explanation, details
}
