package taxonomy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GenreOverride replaces the Blueprint default weights/thresholds for one
// genre, when present and valid.
type GenreOverride struct {
	Weights    map[string]float64 `yaml:"weights"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// ABTest is a named experiment that swaps in its own override for a set
// of genres while enabled, taking precedence over a plain genre override.
type ABTest struct {
	Name      string          `yaml:"name"`
	Enabled   bool            `yaml:"enabled"`
	Genres    []string        `yaml:"genres"`
	Overrides GenreOverride   `yaml:"overrides"`
}

// ValidationRules controls how strictly LoadRubricOverrides checks the
// file before accepting it.
type ValidationRules struct {
	RequireWeightsSumToOne bool     `yaml:"require_weights_sum_to_one"`
	WeightSumTolerance     float64  `yaml:"weight_sum_tolerance"`
	RequireAllMetrics      bool     `yaml:"require_all_metrics"`
	RequiredMetrics        []string `yaml:"required_metrics"`
}

// LoggingConfig controls which rubric-scoring events get logged.
type LoggingConfig struct {
	LogThresholdDecisions      bool `yaml:"log_threshold_decisions"`
	LogImprovementSuggestions  bool `yaml:"log_improvement_suggestions"`
	LogConfigSource            bool `yaml:"log_config_source"`
	LogABTestParticipation     bool `yaml:"log_ab_test_participation"`
}

// RubricOverrides is the loaded, validated form of a rubric_overrides.yaml
// file: per-genre weight/threshold overrides plus A/B test definitions.
type RubricOverrides struct {
	Overrides  map[string]GenreOverride `yaml:"overrides"`
	ABTests    map[string]ABTest        `yaml:"ab_tests"`
	Validation ValidationRules          `yaml:"validation"`
	Logging    LoggingConfig            `yaml:"logging"`
}

var defaultRequiredMetrics = []string{
	"hook_density", "singability", "rhyme_tightness", "section_completeness", "profanity_score",
}

func defaultValidationRules() ValidationRules {
	return ValidationRules{
		RequireWeightsSumToOne: true,
		WeightSumTolerance:     0.01,
		RequireAllMetrics:      true,
		RequiredMetrics:        defaultRequiredMetrics,
	}
}

// LoadRubricOverrides reads, parses, and validates a rubric overrides
// file. A file that is absent is not an error — the caller falls back to
// Blueprint defaults. A file that exists but fails validation is rejected
// as a whole: the original system never partially applies malformed
// overrides.
func LoadRubricOverrides(path string) (*RubricOverrides, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		empty := &RubricOverrides{
			Overrides:  map[string]GenreOverride{},
			ABTests:    map[string]ABTest{},
			Validation: defaultValidationRules(),
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rubric overrides %s: %w", path, err)
	}

	var o RubricOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse rubric overrides %s: %w", path, err)
	}
	if o.Overrides == nil {
		o.Overrides = map[string]GenreOverride{}
	}
	if o.ABTests == nil {
		o.ABTests = map[string]ABTest{}
	}
	if o.Validation.WeightSumTolerance == 0 {
		o.Validation = defaultValidationRules()
	}
	if len(o.Validation.RequiredMetrics) == 0 {
		o.Validation.RequiredMetrics = defaultRequiredMetrics
	}

	if err := o.validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (o *RubricOverrides) validate() error {
	for genre, override := range o.Overrides {
		if err := o.validateOverride(genre, override); err != nil {
			return err
		}
	}
	for id, test := range o.ABTests {
		if test.Name == "" || len(test.Genres) == 0 {
			return fmt.Errorf("ab_test %q: name and genres are required", id)
		}
		if len(test.Overrides.Weights) > 0 {
			if err := o.validateOverride("ab_test:"+id, test.Overrides); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *RubricOverrides) validateOverride(genre string, override GenreOverride) error {
	if o.Validation.RequireAllMetrics && len(override.Weights) > 0 {
		for _, metric := range o.Validation.RequiredMetrics {
			if _, ok := override.Weights[metric]; !ok {
				return fmt.Errorf("genre %q: missing required metric %q", genre, metric)
			}
		}
	}

	if o.Validation.RequireWeightsSumToOne && len(override.Weights) > 0 {
		sum := 0.0
		for metric, weight := range override.Weights {
			if weight < 0.0 || weight > 1.0 {
				return fmt.Errorf("genre %q: weight for %q out of range [0,1]: %v", genre, metric, weight)
			}
			sum += weight
		}
		if diff := sum - 1.0; diff < -o.Validation.WeightSumTolerance || diff > o.Validation.WeightSumTolerance {
			return fmt.Errorf("genre %q: weights sum to %v, expected 1.0 ± %v", genre, sum, o.Validation.WeightSumTolerance)
		}
	}

	for name, value := range override.Thresholds {
		if value < 0.0 || value > 1.0 {
			return fmt.Errorf("genre %q: threshold %q out of range [0,1]: %v", genre, name, value)
		}
	}
	return nil
}

// Resolve returns the weights/thresholds in effect for genre, applying
// precedence: an enabled A/B test covering genre beats a plain genre
// override, which beats the Blueprint default.
func (o *RubricOverrides) Resolve(genre string, blueprintWeights RubricWeights, blueprintThresholds RubricThresholds) (RubricWeights, RubricThresholds, string) {
	weights, thresholds := blueprintWeights, blueprintThresholds
	source := "blueprint_default"

	if override, ok := o.Overrides[genre]; ok {
		weights = mergeWeights(weights, override.Weights)
		thresholds = mergeThresholds(thresholds, override.Thresholds)
		source = "genre_override"
	}

	// A/B tests are one-shot: the first enabled test whose genre list
	// covers genre wins. Map iteration order is not insertion order, so
	// ids are sorted first to make "first" a deterministic notion.
	ids := make([]string, 0, len(o.ABTests))
	for id := range o.ABTests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		test := o.ABTests[id]
		if !test.Enabled || !containsGenre(test.Genres, genre) {
			continue
		}
		weights = mergeWeights(weights, test.Overrides.Weights)
		thresholds = mergeThresholds(thresholds, test.Overrides.Thresholds)
		source = "ab_test:" + id
		break
	}

	return weights, thresholds, source
}

func containsGenre(genres []string, genre string) bool {
	for _, g := range genres {
		if g == genre {
			return true
		}
	}
	return false
}

func mergeWeights(base RubricWeights, overrides map[string]float64) RubricWeights {
	if len(overrides) == 0 {
		return base
	}
	if v, ok := overrides["hook_density"]; ok {
		base.HookDensity = v
	}
	if v, ok := overrides["singability"]; ok {
		base.Singability = v
	}
	if v, ok := overrides["rhyme_tightness"]; ok {
		base.RhymeTightness = v
	}
	if v, ok := overrides["section_completeness"]; ok {
		base.SectionCompleteness = v
	}
	if v, ok := overrides["profanity_score"]; ok {
		base.ProfanityScore = v
	}
	return base
}

func mergeThresholds(base RubricThresholds, overrides map[string]float64) RubricThresholds {
	if v, ok := overrides["min_total"]; ok {
		base.MinTotal = v
	}
	if v, ok := overrides["max_profanity"]; ok {
		base.MaxProfanity = v
	}
	return base
}
