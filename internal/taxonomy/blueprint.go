package taxonomy

import (
	"os"
	"regexp"
	"strconv"
)

// BlueprintRules are the structural constraints a blueprint imposes:
// tempo range, required song sections in order, and target length.
type BlueprintRules struct {
	TempoBPMMin       int
	TempoBPMMax       int
	RequiredSections  []string
	LengthMinutesMin  float64
	LengthMinutesMax  float64
}

// RubricWeights are the five-metric weighting a blueprint's scoring
// compositor uses when no genre override or A/B test applies.
type RubricWeights struct {
	HookDensity          float64
	Singability          float64
	RhymeTightness       float64
	SectionCompleteness  float64
	ProfanityScore       float64
}

// RubricThresholds are the pass/fail cutoffs paired with RubricWeights.
type RubricThresholds struct {
	MinTotal     float64
	MaxProfanity float64
}

// DefaultRubricWeights are the standard pop rubric weights. ParseBlueprint
// assigns them to every blueprint; it does not read rubric weights from
// the markdown.
var DefaultRubricWeights = RubricWeights{
	HookDensity:         0.25,
	Singability:         0.20,
	RhymeTightness:      0.15,
	SectionCompleteness: 0.20,
	ProfanityScore:      0.20,
}

// DefaultRubricThresholds are the standard pop rubric thresholds.
var DefaultRubricThresholds = RubricThresholds{
	MinTotal:     0.75,
	MaxProfanity: 0.1,
}

// Blueprint is the parsed form of a genre's markdown blueprint file.
type Blueprint struct {
	Genre      string
	Rules      BlueprintRules
	Weights    RubricWeights
	Thresholds RubricThresholds
}

var (
	tempoPattern     = regexp.MustCompile(`(?i)\*\*Tempo:\*\*[^\d]*(\d+)[–-](\d+)\s*BPM`)
	tempoAltPattern  = regexp.MustCompile(`(\d+)[–-](\d+)\s*BPM`)
	formPattern      = regexp.MustCompile(`(?i)\*\*Form:\*\*[^\n]*?\*\*([^*]+)\*\*`)
	sectionPattern   = regexp.MustCompile(`(?i)(Verse|Chorus|Bridge|Pre[‑-]?Chorus|Intro|Outro|Hook)`)
	lengthPattern    = regexp.MustCompile(`(?i)(\d+\.?\d*)[–-](\d+\.?\d*)\s*minutes`)
)

// ParseBlueprint parses raw blueprint markdown for tempo, form (required
// sections) and length. Weights and thresholds are always the standard
// pop rubric defaults; the markdown is not read for them. A missing form
// falls back to Verse and Chorus, and a missing tempo or length leaves
// those fields zero.
func ParseBlueprint(genre, content string) *Blueprint {
	b := &Blueprint{
		Genre:      genre,
		Weights:    DefaultRubricWeights,
		Thresholds: DefaultRubricThresholds,
	}

	if m := tempoPattern.FindStringSubmatch(content); m != nil {
		b.Rules.TempoBPMMin, _ = strconv.Atoi(m[1])
		b.Rules.TempoBPMMax, _ = strconv.Atoi(m[2])
	} else if m := tempoAltPattern.FindStringSubmatch(content); m != nil {
		b.Rules.TempoBPMMin, _ = strconv.Atoi(m[1])
		b.Rules.TempoBPMMax, _ = strconv.Atoi(m[2])
	}

	var sections []string
	if m := formPattern.FindStringSubmatch(content); m != nil {
		seen := map[string]bool{}
		for _, match := range sectionPattern.FindAllString(m[1], -1) {
			if !seen[match] {
				seen[match] = true
				sections = append(sections, match)
			}
		}
	}
	if len(sections) == 0 {
		sections = []string{"Verse", "Chorus"}
	}
	b.Rules.RequiredSections = sections

	if m := lengthPattern.FindStringSubmatch(content); m != nil {
		b.Rules.LengthMinutesMin, _ = strconv.ParseFloat(m[1], 64)
		b.Rules.LengthMinutesMax, _ = strconv.ParseFloat(m[2], 64)
	}

	return b
}

// LoadBlueprint reads a blueprint markdown file from disk and parses it.
func LoadBlueprint(genre, path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBlueprint(genre, string(data)), nil
}
