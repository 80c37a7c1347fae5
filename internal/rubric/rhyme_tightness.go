package rubric

import "fmt"

// RhymePair is one detected end-rhyme between two lines.
type RhymePair struct {
	Line1 string
	Line2 string
}

// RhymeTightnessDetails is the debug bundle for the rhyme_tightness
// metric.
type RhymeTightnessDetails struct {
	TotalLines     int
	MatchedRhymes  int
	ExpectedRhymes int
	RhymePairs     []RhymePair // top 10
}

// wordsRhyme is a simple suffix-matching heuristic: two distinct words
// rhyme if their last two, or last three, characters match.
func wordsRhyme(word1, word2 string) bool {
	if word1 == word2 {
		return false
	}
	if len(word1) >= 2 && len(word2) >= 2 {
		if word1[len(word1)-2:] == word2[len(word2)-2:] {
			return true
		}
		if len(word1) >= 3 && len(word2) >= 3 && word1[len(word1)-3:] == word2[len(word2)-3:] {
			return true
		}
	}
	return false
}

// detectRhymePairs checks consecutive line pairs (AABB) and lines two
// apart (ABAB) for end-word rhymes. The two-apart scan stops one pair
// short: the last line is never compared with the line two before it.
func detectRhymePairs(lines []string) []RhymePair {
	type ending struct {
		word string
		line string
	}
	var endings []ending
	for _, line := range lines {
		words := wordPattern.FindAllString(line, -1)
		if len(words) == 0 {
			continue
		}
		endings = append(endings, ending{word: toLowerASCII(words[len(words)-1]), line: line})
	}

	var pairs []RhymePair
	seen := map[[2]string]bool{}

	for i := 0; i+1 < len(endings); i += 2 {
		if wordsRhyme(endings[i].word, endings[i+1].word) {
			key := [2]string{endings[i].line, endings[i+1].line}
			pairs = append(pairs, RhymePair{Line1: endings[i].line, Line2: endings[i+1].line})
			seen[key] = true
		}
	}

	for i := 0; i < len(endings)-3; i++ {
		w1, l1 := endings[i].word, endings[i].line
		w2, l2 := endings[i+2].word, endings[i+2].line
		if !wordsRhyme(w1, w2) {
			continue
		}
		fwd, rev := [2]string{l1, l2}, [2]string{l2, l1}
		if seen[fwd] || seen[rev] {
			continue
		}
		pairs = append(pairs, RhymePair{Line1: l1, Line2: l2})
		seen[fwd] = true
	}

	return pairs
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// calculateRhymeTightness scores matched_pairs / expected_pairs, where
// expected_pairs assumes every other line should rhyme (total_lines /
// 2), capped at 1.0.
func calculateRhymeTightness(lyrics Lyrics) (float64, string, RhymeTightnessDetails) {
	if len(lyrics.Sections) == 0 {
		return 0.0, "No sections found", RhymeTightnessDetails{}
	}

	var lines []string
	for _, section := range lyrics.Sections {
		lines = append(lines, nonEmptyLines(section.Lines)...)
	}
	if len(lines) < 2 {
		return 0.0, "Need at least 2 lines to evaluate rhyme", RhymeTightnessDetails{}
	}

	pairs := detectRhymePairs(lines)
	expected := len(lines) / 2
	matched := len(pairs)

	score := 0.0
	if expected > 0 {
		score = float64(matched) / float64(expected)
		if score > 1.0 {
			score = 1.0
		}
	}

	explanation := fmt.Sprintf("Rhyme tightness: %.2f. Found %d rhyming pairs out of %d expected. ", score, matched, expected)
	switch {
	case score >= 0.7:
		explanation += "Strong rhyme scheme."
	case score >= 0.5:
		explanation += "Moderate rhyme scheme."
	default:
		explanation += "Weak rhyme scheme - consider tightening rhymes."
	}

	top := pairs
	if len(top) > 10 {
		top = top[:10]
	}

	details := RhymeTightnessDetails{
		TotalLines:     len(lines),
		MatchedRhymes:  matched,
		ExpectedRhymes: expected,
		RhymePairs:     top,
	}
	return score, explanation, details
}
