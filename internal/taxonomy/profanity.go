package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ModeThreshold is the per-mode violation budget: how many violations of
// each severity are tolerated before detect_profanity reports a breach,
// plus a ceiling on the aggregate weighted score. -1 means unlimited.
type ModeThreshold struct {
	MaxMildCount     int     `json:"max_mild_count"`
	MaxModerateCount int     `json:"max_moderate_count"`
	MaxStrongCount   int     `json:"max_strong_count"`
	MaxExtremeCount  int     `json:"max_extreme_count"`
	MaxScore         float64 `json:"max_score"`
}

// WhitelistConfig lists phrases that suppress an otherwise-matching term
// when found within the ±20-char context window around it.
type WhitelistConfig struct {
	Terms []string `json:"terms"`
}

// VariationConfig maps a base character to its leetspeak substitute
// characters, e.g. "a": ["4", "@"].
type VariationConfig struct {
	LeetspeakPatterns map[string][]string `json:"leetspeak_patterns"`
}

// ProfanityTaxonomy is the loaded form of a profanity_list.json file.
type ProfanityTaxonomy struct {
	Categories      map[string][]string      `json:"categories"`
	SeverityWeights map[string]float64       `json:"severity_weights"`
	Thresholds      map[string]ModeThreshold `json:"thresholds"`
	Whitelist       WhitelistConfig          `json:"whitelist"`
	Variations      VariationConfig          `json:"variations"`
}

var defaultSeverityWeights = map[string]float64{
	"mild":     0.25,
	"moderate": 0.5,
	"strong":   0.75,
	"extreme":  1.0,
}

// LoadProfanityTaxonomy reads and parses a profanity taxonomy file.
// Category term lists are sorted for deterministic detection order, the
// same guarantee the original _load_taxonomy documents.
func LoadProfanityTaxonomy(path string) (*ProfanityTaxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profanity taxonomy %s: %w", path, err)
	}

	var t ProfanityTaxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse profanity taxonomy %s: %w", path, err)
	}

	for category, terms := range t.Categories {
		sorted := append([]string(nil), terms...)
		sort.Strings(sorted)
		t.Categories[category] = sorted
	}

	if t.SeverityWeights == nil {
		t.SeverityWeights = defaultSeverityWeights
	}
	if t.Thresholds == nil {
		t.Thresholds = map[string]ModeThreshold{}
	}

	return &t, nil
}
