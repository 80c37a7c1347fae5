package rubric

import (
	"fmt"

	"github.com/miethe/MeatyMusic-sub000/internal/policy"
)

// ProfanityDetails is the debug bundle for the profanity_score metric.
type ProfanityDetails struct {
	TotalLines      int
	ViolationCount  int
	ViolationRatio  float64
	Violations      []policy.ProfanityViolation // top 10
	SeverityCounts  map[string]int              // violation count per severity, over lines that breach the mode's thresholds
	ExplicitAllowed bool
}

// calculateProfanityScore runs the profanity filter over every non-empty
// line and scores 1 - (lines with a violation / total lines) — it
// counts lines carrying at least one violation, not the total violation
// count, so one heavily profane line costs the same as one mildly
// profane line.
func (s *RubricScorer) calculateProfanityScore(lyrics Lyrics, explicitAllowed bool) (float64, string, ProfanityDetails) {
	if len(lyrics.Sections) == 0 {
		return 1.0, "No sections to check", ProfanityDetails{}
	}

	var lines []string
	for _, section := range lyrics.Sections {
		lines = append(lines, nonEmptyLines(section.Lines)...)
	}
	if len(lines) == 0 {
		return 1.0, "No lines to check", ProfanityDetails{}
	}

	totalLines := len(lines)
	mode := policy.ModeClean
	if explicitAllowed {
		mode = policy.ModeExplicit
	}

	violationLines := 0
	severityCounts := map[string]int{}
	var allViolations []policy.ProfanityViolation
	for _, line := range lines {
		breached, violations := s.profanity.DetectProfanity(line, mode)
		if breached {
			violationLines++
			allViolations = append(allViolations, violations...)
			for _, v := range violations {
				severityCounts[v.Severity]++
			}
		}
	}

	score := 1.0 - float64(violationLines)/float64(totalLines)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	explanation := fmt.Sprintf("Profanity score: %.2f. ", score)
	if violationLines == 0 {
		explanation += "No profanity detected - clean content."
	} else {
		explanation += fmt.Sprintf("Found %d lines with profanity out of %d total. ", violationLines, totalLines)
		if explicitAllowed {
			explanation += "Explicit content allowed."
		} else {
			explanation += "Explicit content NOT allowed - violations present."
		}
	}

	top := allViolations
	if len(top) > 10 {
		top = top[:10]
	}

	details := ProfanityDetails{
		TotalLines:      totalLines,
		ViolationCount:  violationLines,
		ViolationRatio:  float64(violationLines) / float64(totalLines),
		Violations:      top,
		SeverityCounts:  severityCounts,
		ExplicitAllowed: explicitAllowed,
	}
	return score, explanation, details
}
