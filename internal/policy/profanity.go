// Package policy implements the content-safety checks that gate lyrics,
// style prompts, and producer notes before release: profanity detection
// and scoring, PII detection and redaction, living-artist normalization,
// and release-policy enforcement with an audit trail.
package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
)

// Mode is an explicit-content tolerance level, checked against a
// taxonomy.ModeThreshold.
type Mode string

const (
	ModeClean            Mode = "clean"
	ModeMildAllowed      Mode = "mild_allowed"
	ModeModerateAllowed  Mode = "moderate_allowed"
	ModeExplicit         Mode = "explicit"
)

// ProfanityViolation is one detected profane term with enough context for
// a caller to render or redact it.
type ProfanityViolation struct {
	Term           string
	Position       int
	Severity       string
	Context        string
	Section        string
	NormalizedForm string
	OriginalForm   string
}

// LyricsSection is one named, positioned block of lyric text, matching
// the shape check_lyrics_sections accepts.
type LyricsSection struct {
	Name string
	Text string
	Line int
}

// ProfanityFilter detects and scores profanity against a loaded taxonomy,
// handling leetspeak/masking variations and whitelist suppression.
type ProfanityFilter struct {
	taxonomy *taxonomy.ProfanityTaxonomy

	wordBoundary []termPattern
	variations   []variationPattern
}

type termPattern struct {
	term     string
	category string
	pattern  *regexp.Regexp
}

type variationPattern struct {
	term     string
	category string
	pattern  *regexp.Regexp
}

// NewProfanityFilter compiles detection patterns from tax. Patterns are
// compiled once, in category-then-sorted-term order, for deterministic
// detection ordering.
func NewProfanityFilter(tax *taxonomy.ProfanityTaxonomy) *ProfanityFilter {
	f := &ProfanityFilter{taxonomy: tax}

	categories := sortedKeys(tax.Categories)
	for _, category := range categories {
		for _, term := range tax.Categories[category] {
			pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
			f.wordBoundary = append(f.wordBoundary, termPattern{term: term, category: category, pattern: pattern})
		}
	}

	for _, category := range categories {
		for _, term := range tax.Categories[category] {
			for _, variation := range f.leetspeakVariations(term, 10) {
				pattern, err := regexp.Compile(`(?i)\b` + variation + `\b`)
				if err != nil {
					continue
				}
				f.variations = append(f.variations, variationPattern{term: term, category: category, pattern: pattern})
			}
		}
	}

	return f
}

// leetspeakVariations generates up to max regex fragments that allow a
// leetspeak substitution at one character position, mirroring
// _generate_leetspeak_variations: for each substitutable character, build
// a pattern with that position pinned to the substitute and every other
// substitutable position allowed to be either its original character or
// one of its own top-2 substitutes.
func (f *ProfanityFilter) leetspeakVariations(term string, max int) []string {
	if term == "" {
		return nil
	}
	lower := strings.ToLower(term)
	patterns := f.taxonomy.Variations.LeetspeakPatterns

	var variations []string
	for i, ch := range lower {
		char := string(ch)
		substitutes, ok := patterns[char]
		if !ok {
			continue
		}
		limit := substitutes
		if len(limit) > 2 {
			limit = limit[:2]
		}
		for _, substitute := range limit {
			var b strings.Builder
			for j, c := range lower {
				switch {
				case j == i:
					b.WriteString(regexp.QuoteMeta(substitute))
				default:
					cStr := string(c)
					if subs, ok := patterns[cStr]; ok {
						alts := []string{regexp.QuoteMeta(cStr)}
						capped := subs
						if len(capped) > 2 {
							capped = capped[:2]
						}
						for _, s := range capped {
							alts = append(alts, regexp.QuoteMeta(s))
						}
						b.WriteString("[" + strings.Join(alts, "") + "]")
					} else {
						b.WriteString(regexp.QuoteMeta(cStr))
					}
				}
			}
			variations = append(variations, b.String())
			if len(variations) >= max {
				return variations
			}
		}
	}
	return variations
}

var (
	maskingPattern   = regexp.MustCompile(`(\w)[*\-_]+(\w)`)
	spacing4Pattern  = regexp.MustCompile(`(?i)\b([a-z])\s+([a-z])\s+([a-z])\s+([a-z])\b`)
	spacing3Pattern  = regexp.MustCompile(`(?i)\b([a-z])\s+([a-z])\s+([a-z])\b`)
)

// normalizeText collapses common masking techniques (f**k, f-u-c-k, f u c
// k) while preserving word boundaries, mirroring _normalize_text.
func normalizeText(text string) string {
	normalized := maskingPattern.ReplaceAllString(text, "$1$2")
	normalized = spacing4Pattern.ReplaceAllString(normalized, "$1$2$3$4")
	normalized = spacing3Pattern.ReplaceAllString(normalized, "$1$2$3")
	return normalized
}

// isWhitelisted reports whether any whitelist phrase appears in the
// ±20-char window around the detected term, suppressing false positives
// like "assessment" containing "ass".
func (f *ProfanityFilter) isWhitelisted(text string, position, termLength int) bool {
	start := position - 20
	if start < 0 {
		start = 0
	}
	end := position + termLength + 20
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for whitelisted := range whitelistSet(f.taxonomy.Whitelist.Terms) {
		if strings.Contains(window, whitelisted) {
			return true
		}
	}
	return false
}

func whitelistSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func getContext(text string, position, termLength, contextChars int) string {
	start := position - contextChars
	if start < 0 {
		start = 0
	}
	end := position + termLength + contextChars
	if end > len(text) {
		end = len(text)
	}

	before := text[start:position]
	term := text[position : position+termLength]
	after := text[position+termLength : end]

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(text) {
		suffix = "..."
	}
	return fmt.Sprintf("%s%s[%s]%s%s", prefix, before, term, after, suffix)
}

func (f *ProfanityFilter) findTermCategory(term string) (string, bool) {
	lower := strings.ToLower(term)
	for category, terms := range f.taxonomy.Categories {
		for _, t := range terms {
			if strings.ToLower(t) == lower {
				return category, true
			}
		}
	}
	return "", false
}

// DetectProfanity is the main detection entry point: it normalizes text,
// checks word-boundary patterns then leetspeak variations, suppresses
// whitelisted hits, and reports whether the mode's threshold is breached.
func (f *ProfanityFilter) DetectProfanity(text string, mode Mode) (breached bool, violations []ProfanityViolation) {
	if text == "" {
		return false, nil
	}

	normalized := normalizeText(text)
	detectedPositions := map[int]bool{}

	for _, tp := range f.wordBoundary {
		for _, loc := range tp.pattern.FindAllStringIndex(text, -1) {
			position := loc[0]
			if detectedPositions[position] {
				continue
			}
			matched := text[loc[0]:loc[1]]
			if f.isWhitelisted(text, position, len(matched)) {
				continue
			}
			category, ok := f.findTermCategory(tp.term)
			if !ok {
				continue
			}
			violations = append(violations, ProfanityViolation{
				Term:           tp.term,
				Position:       position,
				Severity:       category,
				Context:        getContext(text, position, len(matched), 20),
				NormalizedForm: tp.term,
				OriginalForm:   matched,
			})
			detectedPositions[position] = true
		}
	}

	for _, vp := range f.variations {
		for _, loc := range vp.pattern.FindAllStringIndex(normalized, -1) {
			position := loc[0]
			if detectedPositions[position] {
				continue
			}
			matched := normalized[loc[0]:loc[1]]
			if position < len(text) && f.isWhitelisted(text, position, len(matched)) {
				continue
			}
			category, ok := f.findTermCategory(vp.term)
			if !ok {
				continue
			}
			originalForm := matched
			if position < len(text) && position+len(matched) <= len(text) {
				originalForm = text[position : position+len(matched)]
			}
			violations = append(violations, ProfanityViolation{
				Term:           vp.term,
				Position:       position,
				Severity:       category,
				Context:        getContext(text, position, len(matched), 20),
				NormalizedForm: matched,
				OriginalForm:   originalForm,
			})
			detectedPositions[position] = true
		}
	}

	return f.breachesThreshold(violations, mode), violations
}

func (f *ProfanityFilter) breachesThreshold(violations []ProfanityViolation, mode Mode) bool {
	if len(violations) == 0 {
		return false
	}

	threshold, ok := f.taxonomy.Thresholds[string(mode)]
	if !ok {
		threshold = f.taxonomy.Thresholds[string(ModeClean)]
	}

	counts := map[string]int{"mild": 0, "moderate": 0, "strong": 0, "extreme": 0}
	for _, v := range violations {
		if _, known := counts[v.Severity]; known {
			counts[v.Severity]++
		}
	}

	limits := map[string]int{
		"mild":     threshold.MaxMildCount,
		"moderate": threshold.MaxModerateCount,
		"strong":   threshold.MaxStrongCount,
		"extreme":  threshold.MaxExtremeCount,
	}
	for severity, count := range counts {
		max := limits[severity]
		if max != -1 && count > max {
			return true
		}
	}

	return f.ScoreFromViolations(violations) > threshold.MaxScore
}

// CheckLyricsSections runs DetectProfanity over each section and tags
// resulting violations with the section they came from.
func (f *ProfanityFilter) CheckLyricsSections(sections []LyricsSection, mode Mode) (bool, []ProfanityViolation) {
	var all []ProfanityViolation
	for _, section := range sections {
		if section.Text == "" {
			continue
		}
		_, violations := f.DetectProfanity(section.Text, mode)
		for i := range violations {
			violations[i].Section = section.Name
		}
		all = append(all, violations...)
	}
	return len(all) > 0, all
}

// Score computes the profanity score for text in [0,1]: detected in the
// most permissive (explicit) mode so every term counts, weighted by
// severity, normalized by word count, and capped at 1.0.
func (f *ProfanityFilter) Score(text string) float64 {
	if text == "" {
		return 0.0
	}
	_, violations := f.DetectProfanity(text, ModeExplicit)
	if len(violations) == 0 {
		return 0.0
	}

	totalWeight := 0.0
	for _, v := range violations {
		totalWeight += f.severityWeight(v.Severity)
	}

	wordCount := len(strings.Fields(text))
	if wordCount == 0 {
		return 0.0
	}

	score := (totalWeight / float64(wordCount)) * 100
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ScoreFromViolations computes the mean severity weight of an existing
// violation set, used for threshold checks where text isn't re-scanned.
func (f *ProfanityFilter) ScoreFromViolations(violations []ProfanityViolation) float64 {
	if len(violations) == 0 {
		return 0.0
	}
	total := 0.0
	for _, v := range violations {
		total += f.severityWeight(v.Severity)
	}
	score := total / float64(len(violations))
	if score > 1.0 {
		return 1.0
	}
	return score
}

func (f *ProfanityFilter) severityWeight(severity string) float64 {
	if w, ok := f.taxonomy.SeverityWeights[severity]; ok {
		return w
	}
	return 0.25
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
