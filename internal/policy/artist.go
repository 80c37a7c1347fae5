package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
)

// ArtistReference is one detected living-artist influence reference.
type ArtistReference struct {
	ArtistName            string
	Position              int
	PatternUsed           string
	MatchedText           string
	GenericReplacement    string
	RequiresNormalization bool
	Confidence            float64
	Genre                 string
	StyleTags             []string
}

// ArtistChange documents one normalize_influences replacement.
type ArtistChange struct {
	Original    string
	Replacement string
	Artist      string
	Position    int
	Pattern     string
}

type compiledArtistPattern struct {
	template    string
	replacement string
	pattern     *regexp.Regexp
}

// ArtistNormalizer detects living-artist references ("style of X",
// "sounds like Y") and normalizes them to generic style descriptions.
type ArtistNormalizer struct {
	registry *taxonomy.ArtistRegistry
	patterns []compiledArtistPattern
}

// NewArtistNormalizer compiles one regex per normalization pattern
// template, capturing any known artist name or alias as group 1.
func NewArtistNormalizer(registry *taxonomy.ArtistRegistry) *ArtistNormalizer {
	n := &ArtistNormalizer{registry: registry}
	identifiers := registry.AllIdentifiers()
	sort.SliceStable(identifiers, func(i, j int) bool { return len(identifiers[i]) > len(identifiers[j]) })
	quoted := make([]string, len(identifiers))
	for i, id := range identifiers {
		quoted[i] = regexp.QuoteMeta(id)
	}
	artistGroup := "(" + strings.Join(quoted, "|") + ")"
	for _, np := range registry.NormalizationPatterns {
		escaped := strings.ReplaceAll(np.Pattern, "{artist}", "ARTIST_PLACEHOLDER")
		escaped = regexp.QuoteMeta(escaped)
		escaped = strings.ReplaceAll(escaped, "ARTIST_PLACEHOLDER", artistGroup)
		pattern, err := regexp.Compile(`(?i)\b` + escaped + `\b`)
		if err != nil {
			continue
		}
		n.patterns = append(n.patterns, compiledArtistPattern{
			template:    np.Pattern,
			replacement: np.Replacement,
			pattern:     pattern,
		})
	}
	return n
}

// fuzzyMatch falls back to an exact/alias lookup, then a SequenceMatcher-
// equivalent similarity ratio against every known name and alias,
// returning the best match at or above the configured threshold.
func (n *ArtistNormalizer) fuzzyMatch(text string) (taxonomy.Artist, string, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if artist, genre, ok := n.registry.Lookup(trimmed); ok {
		return artist, genre, true
	}
	if !n.registry.FuzzyMatching.Enabled {
		return taxonomy.Artist{}, "", false
	}

	bestScore := 0.0
	bestName := ""
	for _, candidate := range n.registry.AllIdentifiers() {
		score := ratioSimilarity(trimmed, candidate)
		if score > bestScore && score >= n.registry.FuzzyMatching.MinSimilarityThreshold {
			bestScore = score
			bestName = candidate
		}
	}
	if bestName == "" {
		return taxonomy.Artist{}, "", false
	}
	return n.registry.Lookup(bestName)
}

// ratioSimilarity mirrors Python's difflib.SequenceMatcher.ratio() via the
// Go port of the same algorithm.
func ratioSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return matcher.Ratio()
}

// DetectArtistReferences finds every living-artist reference in text, in
// position order.
func (n *ArtistNormalizer) DetectArtistReferences(text string) (bool, []ArtistReference) {
	if text == "" {
		return false, nil
	}

	var references []ArtistReference
	detected := map[int]bool{}

	for _, cp := range n.patterns {
		for _, match := range cp.pattern.FindAllStringSubmatchIndex(text, -1) {
			position := match[0]
			if detected[position] {
				continue
			}
			if len(match) < 4 || match[2] < 0 {
				continue
			}
			captured := text[match[2]:match[3]]
			artist, genre, ok := n.fuzzyMatch(captured)
			if !ok {
				continue
			}

			replacement := cp.replacement
			switch {
			case strings.Contains(replacement, "{generic_description}"):
				replacement = strings.ReplaceAll(replacement, "{generic_description}", artist.GenericDescription)
			case strings.Contains(replacement, "{genre}"):
				replacement = strings.ReplaceAll(replacement, "{genre}", genre)
			default:
				replacement = artist.GenericDescription
			}

			confidence := 0.9
			if exactArtist, _, exact := n.registry.Lookup(strings.ToLower(strings.TrimSpace(captured))); exact && exactArtist.Name == artist.Name {
				confidence = 1.0
			}

			references = append(references, ArtistReference{
				ArtistName:            artist.Name,
				Position:              position,
				PatternUsed:           cp.template,
				MatchedText:           text[match[0]:match[1]],
				GenericReplacement:    replacement,
				RequiresNormalization: true,
				Confidence:            confidence,
				Genre:                 genre,
				StyleTags:             artist.StyleTags,
			})
			detected[position] = true
		}
	}

	sort.SliceStable(references, func(i, j int) bool { return references[i].Position < references[j].Position })
	return len(references) > 0, references
}

// NormalizeInfluences replaces every detected reference with its generic
// description, working right-to-left so earlier positions stay valid.
// Idempotent: a text with no remaining references returns unchanged.
func (n *ArtistNormalizer) NormalizeInfluences(text string) (string, []ArtistChange) {
	if text == "" {
		return text, nil
	}

	hasRefs, references := n.DetectArtistReferences(text)
	if !hasRefs {
		return text, nil
	}

	reversed := append([]ArtistReference(nil), references...)
	sort.SliceStable(reversed, func(i, j int) bool { return reversed[i].Position > reversed[j].Position })

	normalized := text
	var changes []ArtistChange
	for _, ref := range reversed {
		normalized = normalized[:ref.Position] + ref.GenericReplacement + normalized[ref.Position+len(ref.MatchedText):]
		changes = append(changes, ArtistChange{
			Original:    ref.MatchedText,
			Replacement: ref.GenericReplacement,
			Artist:      ref.ArtistName,
			Position:    ref.Position,
			Pattern:     ref.PatternUsed,
		})
	}
	return normalized, changes
}

// CheckPublicReleaseCompliance reports whether text is free of living-
// artist references, unless allowArtistNames permits them (permissive
// mode, never applicable to a true public release).
func (n *ArtistNormalizer) CheckPublicReleaseCompliance(text string, allowArtistNames bool) (bool, []string) {
	if allowArtistNames {
		return true, nil
	}

	hasRefs, references := n.DetectArtistReferences(text)
	if !hasRefs {
		return true, nil
	}

	violations := make([]string, 0, len(references))
	for _, ref := range references {
		violations = append(violations, fmt.Sprintf(
			"living artist reference detected: %q (artist: %s, pattern: %s); public releases cannot contain style-of-living-artist patterns",
			ref.MatchedText, ref.ArtistName, ref.PatternUsed))
	}
	return false, violations
}
