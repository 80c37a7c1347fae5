package rubric

import (
	"fmt"
	"strings"
	"time"

	"github.com/miethe/MeatyMusic-sub000/internal/metrics"
	"github.com/miethe/MeatyMusic-sub000/internal/policy"
	"github.com/miethe/MeatyMusic-sub000/internal/retrieval"
	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
	"github.com/miethe/MeatyMusic-sub000/pkg/logger"
)

// ThresholdDecision is the outcome of validating a ScoreReport against
// its Blueprint thresholds.
type ThresholdDecision string

const (
	DecisionPass       ThresholdDecision = "pass"
	DecisionBorderline ThresholdDecision = "borderline"
	DecisionFail       ThresholdDecision = "fail"
)

// metricTarget is the per-metric target score used by SuggestImprovements
// to flag individually weak metrics, independent of the overall total.
const metricTarget = 0.75

// borderlineMargin is the distance from a threshold, as a fraction,
// within which a passing score is downgraded to BORDERLINE.
const borderlineMargin = 0.05

// ScoreReport is the full output of scoring one lyrics artifact: the five
// metric scores, the weighted total, the weights/thresholds actually
// applied (after override resolution), human explanations, and a
// per-metric debug bundle.
type ScoreReport struct {
	Genre               string
	HookDensity         float64
	Singability         float64
	RhymeTightness      float64
	SectionCompleteness float64
	ProfanityScore      float64
	Total               float64 // weighted sum of the five metrics above

	Weights      taxonomy.RubricWeights
	Thresholds   taxonomy.RubricThresholds
	WeightSource string // "blueprint_default" | "genre_override" | "ab_test:<id>"

	Explanations map[string]string

	MeetsThreshold bool
	Margin         float64

	HookDensityDetails         HookDensityDetails
	SingabilityDetails         SingabilityDetails
	RhymeTightnessDetails      RhymeTightnessDetails
	SectionCompletenessDetails SectionCompletenessDetails
	ProfanityDetails           ProfanityDetails

	// Citations are the Deterministic Retriever chunks the generation
	// pipeline grounded this artifact in. The scorer does not use them
	// in any metric calculation; it carries them through so a
	// downstream audit or reproducibility check has the provenance a
	// score was produced against, without needing to re-fetch it.
	Citations []retrieval.Chunk
}

// RubricScorer computes ScoreReports against a genre Blueprint, resolving
// weights and thresholds through any configured genre override or A/B
// test before scoring, and validates the result against blueprint
// thresholds with a 5%-margin BORDERLINE band.
type RubricScorer struct {
	profanity *policy.ProfanityFilter
	overrides *taxonomy.RubricOverrides
	log       *logger.Logger
	gates     *metrics.QualityGateMetrics
}

// NewRubricScorer builds a scorer around a compiled profanity filter and
// loaded rubric override configuration. log may be nil to disable
// structured logging.
func NewRubricScorer(profanityFilter *policy.ProfanityFilter, overrides *taxonomy.RubricOverrides, log *logger.Logger) *RubricScorer {
	return &RubricScorer{profanity: profanityFilter, overrides: overrides, log: log}
}

// WithGates attaches a Quality Gate Metrics tracker: ScoreArtifacts and
// ValidateThresholds then feed every scoring run's outcome, high-severity
// profanity violations, and scoring latency into its rolling windows.
// Returns s for chaining; gates may be nil to detach.
func (s *RubricScorer) WithGates(gates *metrics.QualityGateMetrics) *RubricScorer {
	s.gates = gates
	return s
}

// ScoreArtifacts evaluates lyrics against blueprint's required sections
// and resolved weights/thresholds. citations records the retrieval
// chunks the caller grounded this generation in; it may be nil.
func (s *RubricScorer) ScoreArtifacts(lyrics Lyrics, genre string, explicitAllowed bool, blueprint *taxonomy.Blueprint, citations []retrieval.Chunk) *ScoreReport {
	start := time.Now()
	weights, thresholds, source := s.overrides.Resolve(genre, blueprint.Weights, blueprint.Thresholds)

	hookDensity, hookExplanation, hookDetails := calculateHookDensity(lyrics)
	singability, singExplanation, singDetails := calculateSingability(lyrics)
	rhymeTightness, rhymeExplanation, rhymeDetails := calculateRhymeTightness(lyrics)
	sectionCompleteness, sectionExplanation, sectionDetails := calculateSectionCompleteness(lyrics, blueprint.Rules.RequiredSections)
	profanityScore, profanityExplanation, profanityDetails := s.calculateProfanityScore(lyrics, explicitAllowed)

	total := hookDensity*weights.HookDensity +
		singability*weights.Singability +
		rhymeTightness*weights.RhymeTightness +
		sectionCompleteness*weights.SectionCompleteness +
		profanityScore*weights.ProfanityScore

	report := &ScoreReport{
		Genre:               genre,
		HookDensity:         hookDensity,
		Singability:         singability,
		RhymeTightness:      rhymeTightness,
		SectionCompleteness: sectionCompleteness,
		ProfanityScore:      profanityScore,
		Total:               total,
		Weights:             weights,
		Thresholds:          thresholds,
		WeightSource:        source,
		Explanations: map[string]string{
			"hook_density":         hookExplanation,
			"singability":          singExplanation,
			"rhyme_tightness":      rhymeExplanation,
			"section_completeness": sectionExplanation,
			"profanity_score":      profanityExplanation,
		},
		MeetsThreshold:             total >= thresholds.MinTotal,
		Margin:                     total - thresholds.MinTotal,
		HookDensityDetails:         hookDetails,
		SingabilityDetails:         singDetails,
		RhymeTightnessDetails:      rhymeDetails,
		SectionCompletenessDetails: sectionDetails,
		ProfanityDetails:           profanityDetails,
		Citations:                  citations,
	}

	if s.log != nil {
		s.log.Info("rubric_scorer.score_artifacts_complete", map[string]interface{}{
			"genre":                genre,
			"total_score":          total,
			"meets_threshold":      report.MeetsThreshold,
			"margin":               report.Margin,
			"weight_source":        source,
			"hook_density":         hookDensity,
			"singability":          singability,
			"rhyme_tightness":      rhymeTightness,
			"section_completeness": sectionCompleteness,
			"profanity_score":      profanityScore,
			"citation_count":       len(citations),
		})
	}

	if s.gates != nil {
		s.gates.TrackLatency(float64(time.Since(start).Milliseconds()), "RUBRIC_SCORE", "")

		var violations []metrics.ViolationCount
		for severity, count := range profanityDetails.SeverityCounts {
			violations = append(violations, metrics.ViolationCount{Severity: severity, Count: count})
		}
		s.gates.TrackPolicyViolations(violations, "")
	}

	return report
}

// ValidateThresholds classifies report as PASS, BORDERLINE, or FAIL
// against its own resolved thresholds (min_total and max_profanity). A
// report that clears both thresholds but by less than borderlineMargin
// is BORDERLINE rather than PASS, since workflow retries have been
// observed to flip scores that close across the line.
func (s *RubricScorer) ValidateThresholds(report *ScoreReport) (ThresholdDecision, float64, []string) {
	totalMargin := report.Total - report.Thresholds.MinTotal
	profanityViolationRatio := 1.0 - report.ProfanityScore
	profanityMargin := report.Thresholds.MaxProfanity - profanityViolationRatio

	totalPasses := totalMargin >= 0
	profanityPasses := profanityMargin >= 0

	suggestions := s.SuggestImprovements(report)

	var decision ThresholdDecision
	switch {
	case totalPasses && profanityPasses:
		if totalMargin <= borderlineMargin || profanityMargin <= borderlineMargin {
			decision = DecisionBorderline
		} else {
			decision = DecisionPass
		}
	default:
		decision = DecisionFail
	}

	overallMargin := totalMargin
	if profanityMargin < overallMargin {
		overallMargin = profanityMargin
	}

	if s.gates != nil {
		s.gates.TrackRubricPassRate(decision == DecisionPass, report.Genre, report.Total, report.Thresholds.MinTotal)
	}

	if s.log != nil {
		s.log.Info("threshold_validation."+string(decision), map[string]interface{}{
			"decision":          string(decision),
			"total_score":       report.Total,
			"min_total":         report.Thresholds.MinTotal,
			"total_margin":      totalMargin,
			"max_profanity":     report.Thresholds.MaxProfanity,
			"profanity_margin":  profanityMargin,
			"weights_source":    report.WeightSource,
			"suggestion_count":  len(suggestions),
		})
	}

	return decision, overallMargin, suggestions
}

// SuggestImprovements generates actionable, per-metric suggestions for
// any metric below metricTarget, plus targeted messages for missing
// sections and excess profanity, ordered with the overall-score message
// (if any) first.
func (s *RubricScorer) SuggestImprovements(report *ScoreReport) []string {
	var suggestions []string

	if report.HookDensity < metricTarget {
		gap := metricTarget - report.HookDensity
		suggestions = append(suggestions, fmt.Sprintf(
			"Improve hook density by %.2f (currently %.2f, target %.2f). Add more repeated phrases or strengthen chorus hooks.",
			gap, report.HookDensity, metricTarget))
	}

	if report.Singability < metricTarget {
		gap := metricTarget - report.Singability
		suggestions = append(suggestions, fmt.Sprintf(
			"Improve singability by %.2f (currently %.2f, target %.2f). Simplify phrasing, reduce complex words, or improve syllable consistency.",
			gap, report.Singability, metricTarget))
	}

	if report.RhymeTightness < metricTarget {
		gap := metricTarget - report.RhymeTightness
		suggestions = append(suggestions, fmt.Sprintf(
			"Improve rhyme tightness by %.2f (currently %.2f, target %.2f). Tighten rhyme scheme or add more end rhymes.",
			gap, report.RhymeTightness, metricTarget))
	}

	if report.SectionCompleteness < 1.0 {
		if missing := report.SectionCompletenessDetails.MissingSections; len(missing) > 0 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Complete missing sections: %s. Section completeness: %.2f",
				strings.Join(missing, ", "), report.SectionCompleteness))
		} else {
			gap := 1.0 - report.SectionCompleteness
			suggestions = append(suggestions, fmt.Sprintf(
				"Improve section completeness by %.2f (currently %.2f). Ensure all sections meet minimum line counts.",
				gap, report.SectionCompleteness))
		}
	}

	profanityViolationRatio := 1.0 - report.ProfanityScore
	if profanityViolationRatio > report.Thresholds.MaxProfanity {
		d := report.ProfanityDetails
		maxAllowed := int(report.Thresholds.MaxProfanity * float64(d.TotalLines))
		suggestions = append(suggestions, fmt.Sprintf(
			"Reduce profanity violations by %d lines (currently %d/%d lines have violations, max allowed: %d). Remove or replace flagged content.",
			d.ViolationCount, d.ViolationCount, d.TotalLines, maxAllowed))
	}

	if report.Total < report.Thresholds.MinTotal {
		gap := report.Thresholds.MinTotal - report.Total
		overall := fmt.Sprintf(
			"Overall score is %.2f below threshold (currently %.2f, need %.2f). Focus on improvements listed below.",
			gap, report.Total, report.Thresholds.MinTotal)
		suggestions = append([]string{overall}, suggestions...)
	}

	if len(suggestions) == 0 && report.Total < report.Thresholds.MinTotal {
		suggestions = append(suggestions, fmt.Sprintf(
			"Overall score %.2f is below threshold %.2f. Review all metrics and improve the lowest-scoring areas.",
			report.Total, report.Thresholds.MinTotal))
	}

	return suggestions
}
