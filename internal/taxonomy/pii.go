package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
)

// PIIPattern is one structured detector's configuration: the regex to
// match, the placeholder it redacts to, and a confidence score carried
// through to the violation report.
type PIIPattern struct {
	Regex      string  `json:"regex"`
	Placeholder string `json:"placeholder"`
	Confidence float64 `json:"confidence"`
}

// NamePatternConfig holds the name-detection templates, applied last and
// at lower confidence than the structured detectors.
type NamePatternConfig struct {
	PatternTemplates map[string]PIIPattern `json:"pattern_templates"`
}

// ValidationConfig carries the minimum confidence a name-pattern match
// must clear to be reported as a violation.
type ValidationConfig struct {
	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
}

// PIITaxonomy is the loaded form of a pii_patterns.json file.
type PIITaxonomy struct {
	Patterns     map[string]PIIPattern `json:"patterns"`
	NamePatterns NamePatternConfig     `json:"name_patterns"`
	Allowlist    map[string][]string   `json:"allowlist"`
	Validation   ValidationConfig      `json:"validation"`
}

// LoadPIITaxonomy reads and parses a PII patterns taxonomy file. Allowlist
// entries whose value is not a string array (e.g. a free-text
// "description" key) are skipped rather than rejected, mirroring the
// original loader's isinstance(terms, list) guard.
func LoadPIITaxonomy(path string) (*PIITaxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pii taxonomy %s: %w", path, err)
	}

	var raw struct {
		Patterns     map[string]PIIPattern      `json:"patterns"`
		NamePatterns NamePatternConfig          `json:"name_patterns"`
		Allowlist    map[string]json.RawMessage `json:"allowlist"`
		Validation   ValidationConfig          `json:"validation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pii taxonomy %s: %w", path, err)
	}

	t := PIITaxonomy{
		Patterns:     raw.Patterns,
		NamePatterns: raw.NamePatterns,
		Validation:   raw.Validation,
		Allowlist:    map[string][]string{},
	}
	for category, value := range raw.Allowlist {
		var terms []string
		if err := json.Unmarshal(value, &terms); err != nil {
			continue
		}
		t.Allowlist[category] = terms
	}
	if t.Validation.MinConfidenceThreshold == 0 {
		t.Validation.MinConfidenceThreshold = 0.7
	}

	return &t, nil
}
