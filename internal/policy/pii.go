package policy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
)

// PIIViolation is one detected piece of personally identifiable
// information.
type PIIViolation struct {
	Type       string
	Value      string
	Position   int
	RedactedAs string
	Confidence float64
	Context    string
}

// PIIDetector runs the fixed-order structured detectors (email, phone,
// SSN, credit card, URL, address) followed by lower-confidence name
// pattern matching, against a loaded PII taxonomy.
type PIIDetector struct {
	taxonomy *taxonomy.PIITaxonomy

	structured   map[string]*regexp.Regexp
	namePatterns map[string]*regexp.Regexp
}

// NewPIIDetector compiles every pattern declared in tax. A pattern whose
// regex fails to compile is skipped rather than failing the whole load,
// mirroring the original's per-pattern try/except around re.compile.
func NewPIIDetector(tax *taxonomy.PIITaxonomy) *PIIDetector {
	d := &PIIDetector{
		taxonomy:     tax,
		structured:   map[string]*regexp.Regexp{},
		namePatterns: map[string]*regexp.Regexp{},
	}
	for name, pattern := range tax.Patterns {
		if pattern.Regex == "" {
			continue
		}
		if compiled, err := regexp.Compile(pattern.Regex); err == nil {
			d.structured[name] = compiled
		}
	}
	for name, pattern := range tax.NamePatterns.PatternTemplates {
		if pattern.Regex == "" {
			continue
		}
		if compiled, err := regexp.Compile(pattern.Regex); err == nil {
			d.namePatterns[name] = compiled
		}
	}
	return d
}

func (d *PIIDetector) isAllowlisted(value string) bool {
	lower := strings.ToLower(value)
	categories := make([]string, 0, len(d.taxonomy.Allowlist))
	for category := range d.taxonomy.Allowlist {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for _, term := range d.taxonomy.Allowlist[category] {
			termLower := strings.ToLower(term)
			if strings.Contains(lower, termLower) || strings.Contains(termLower, lower) {
				return true
			}
		}
	}
	return false
}

func piiContext(text string, position, length, contextChars int) string {
	start := position - contextChars
	if start < 0 {
		start = 0
	}
	end := position + length + contextChars
	if end > len(text) {
		end = len(text)
	}
	before := text[start:position]
	after := text[position+length : end]
	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(text) {
		suffix = "..."
	}
	return prefix + before + "[REDACTED]" + after + suffix
}

func (d *PIIDetector) detectSimple(text, patternName, violationType string, allowlisted bool) []PIIViolation {
	pattern, ok := d.structured[patternName]
	if !ok {
		return nil
	}
	cfg := d.taxonomy.Patterns[patternName]
	var violations []PIIViolation
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		if allowlisted && d.isAllowlisted(value) {
			continue
		}
		violations = append(violations, PIIViolation{
			Type:       violationType,
			Value:      value,
			Position:   loc[0],
			RedactedAs: cfg.Placeholder,
			Confidence: cfg.Confidence,
			Context:    piiContext(text, loc[0], len(value), 20),
		})
	}
	return violations
}

// DetectEmails detects email addresses.
func (d *PIIDetector) DetectEmails(text string) []PIIViolation {
	return d.detectSimple(text, "email", "email", true)
}

// DetectPhones detects US then international phone numbers, deduping
// overlapping matches at the same position.
func (d *PIIDetector) DetectPhones(text string) []PIIViolation {
	var violations []PIIViolation
	seen := map[int]bool{}
	for _, name := range []string{"phone_us", "phone_international"} {
		pattern, ok := d.structured[name]
		if !ok {
			continue
		}
		cfg := d.taxonomy.Patterns[name]
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if seen[loc[0]] {
				continue
			}
			value := text[loc[0]:loc[1]]
			if d.isAllowlisted(value) {
				continue
			}
			violations = append(violations, PIIViolation{
				Type:       "phone",
				Value:      value,
				Position:   loc[0],
				RedactedAs: cfg.Placeholder,
				Confidence: cfg.Confidence,
				Context:    piiContext(text, loc[0], len(value), 20),
			})
			seen[loc[0]] = true
		}
	}
	return violations
}

// DetectSSN detects Social Security Numbers (never allowlist-suppressed).
func (d *PIIDetector) DetectSSN(text string) []PIIViolation {
	return d.detectSimple(text, "ssn", "ssn", false)
}

// DetectCreditCards detects credit card numbers (never allowlist-suppressed).
func (d *PIIDetector) DetectCreditCards(text string) []PIIViolation {
	return d.detectSimple(text, "credit_card", "credit_card", false)
}

// DetectURLs detects URLs.
func (d *PIIDetector) DetectURLs(text string) []PIIViolation {
	return d.detectSimple(text, "url", "url", true)
}

// DetectAddresses detects street addresses.
func (d *PIIDetector) DetectAddresses(text string) []PIIViolation {
	return d.detectSimple(text, "street_address", "address", true)
}

// DetectNames applies the name pattern templates last and at the lowest
// confidence, suppressing matches below the taxonomy's minimum
// confidence threshold.
func (d *PIIDetector) DetectNames(text string) []PIIViolation {
	var violations []PIIViolation
	seen := map[int]bool{}
	templates := d.taxonomy.NamePatterns.PatternTemplates

	names := make([]string, 0, len(d.namePatterns))
	for name := range d.namePatterns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pattern := d.namePatterns[name]
		cfg := templates[name]
		for _, match := range pattern.FindAllStringSubmatchIndex(text, -1) {
			position := match[0]
			if seen[position] {
				continue
			}
			var value string
			if len(match) >= 4 && match[2] >= 0 {
				value = text[match[2]:match[3]]
			} else {
				value = text[match[0]:match[1]]
			}
			if d.isAllowlisted(value) {
				continue
			}
			if cfg.Confidence < d.taxonomy.Validation.MinConfidenceThreshold {
				continue
			}
			violations = append(violations, PIIViolation{
				Type:       "name",
				Value:      value,
				Position:   position,
				RedactedAs: cfg.Placeholder,
				Confidence: cfg.Confidence,
				Context:    piiContext(text, position, len(value), 20),
			})
			seen[position] = true
		}
	}
	return violations
}

// DetectPII runs every detector in the fixed order — structured patterns
// first, names last — and returns violations sorted by position for
// deterministic redaction.
func (d *PIIDetector) DetectPII(text string) (bool, []PIIViolation) {
	if text == "" {
		return false, nil
	}

	var all []PIIViolation
	all = append(all, d.DetectEmails(text)...)
	all = append(all, d.DetectPhones(text)...)
	all = append(all, d.DetectSSN(text)...)
	all = append(all, d.DetectCreditCards(text)...)
	all = append(all, d.DetectURLs(text)...)
	all = append(all, d.DetectAddresses(text)...)
	all = append(all, d.DetectNames(text)...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Position < all[j].Position })
	return len(all) > 0, all
}

// RedactPII replaces every detected violation with its placeholder,
// working from the end of the string toward the start so earlier
// positions remain valid as later ones are replaced.
func (d *PIIDetector) RedactPII(text string) (string, []PIIViolation) {
	if text == "" {
		return text, nil
	}

	hasPII, violations := d.DetectPII(text)
	if !hasPII {
		return text, nil
	}

	reversed := append([]PIIViolation(nil), violations...)
	sort.SliceStable(reversed, func(i, j int) bool { return reversed[i].Position > reversed[j].Position })

	redacted := text
	for _, v := range reversed {
		redacted = redacted[:v.Position] + v.RedactedAs + redacted[v.Position+len(v.Value):]
	}
	return redacted, violations
}
