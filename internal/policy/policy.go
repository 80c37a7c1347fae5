package policy

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
	"github.com/miethe/MeatyMusic-sub000/internal/taxonomy"
)

// textFields lists the content fields checked for release compliance, in
// the fixed order they are evaluated.
var textFields = []string{"style", "lyrics", "producer_notes", "description", "prompt"}

// PersonaPolicy is the subset of a persona record release enforcement
// cares about.
type PersonaPolicy struct {
	PublicRelease bool
}

// AuditEntry is one recorded policy override decision.
type AuditEntry struct {
	ContentID      string
	Reason         string
	UserID         uuid.UUID
	ApprovalLevel  string
	Timestamp      time.Time
	Metadata       map[string]interface{}
}

// PolicyEnforcer checks content against a release policy mode and keeps an
// in-memory audit trail of manual overrides.
type PolicyEnforcer struct {
	normalizer   *ArtistNormalizer
	policyModes  map[string]taxonomy.PolicyMode
	auditConfig  taxonomy.AuditConfig
	auditLog     []AuditEntry
}

// NewPolicyEnforcer builds an enforcer around a configured ArtistNormalizer.
func NewPolicyEnforcer(normalizer *ArtistNormalizer, policyModes map[string]taxonomy.PolicyMode, auditConfig taxonomy.AuditConfig) *PolicyEnforcer {
	return &PolicyEnforcer{
		normalizer:  normalizer,
		policyModes: policyModes,
		auditConfig: auditConfig,
	}
}

// EnforceReleasePolicy checks every text field of content against the
// named policy mode, returning whether the content is compliant and the
// collected violation messages across all fields. In strict mode with
// reject_on_violation set, a violation is returned as a POLICY_VIOLATION
// error in addition to the boolean result, so a caller can fail the
// release rather than merely flagging it.
func (e *PolicyEnforcer) EnforceReleasePolicy(content map[string]interface{}, publicRelease bool, mode string) (bool, []string, error) {
	policyMode, ok := e.policyModes[mode]
	if !ok {
		policyMode = taxonomy.PolicyMode{AllowArtistNames: false, RejectOnViolation: false, RequireApproval: false}
	}

	if !publicRelease {
		return true, nil, nil
	}

	var allViolations []string
	compliant := true

	for _, field := range textFields {
		raw, ok := content[field]
		if !ok {
			continue
		}
		text, ok := raw.(string)
		if !ok || text == "" {
			continue
		}

		fieldCompliant, violations := e.normalizer.CheckPublicReleaseCompliance(text, policyMode.AllowArtistNames)
		if !fieldCompliant {
			compliant = false
			allViolations = append(allViolations, violations...)
		}
	}

	if !compliant && policyMode.RejectOnViolation {
		return false, allViolations, errs.New(errs.CodePolicyViolation, "enforce_release_policy",
			"public release content failed living-artist compliance check in strict mode")
	}

	return compliant, allViolations, nil
}

// CheckPersonaPolicy reports whether a persona flagged for public release
// is itself compliant with the configured release mode; a persona not
// marked for public release is always allowed.
func (e *PolicyEnforcer) CheckPersonaPolicy(persona PersonaPolicy, mode string) bool {
	if !persona.PublicRelease {
		return true
	}
	policyMode, ok := e.policyModes[mode]
	if !ok {
		return false
	}
	return policyMode.AllowArtistNames || !policyMode.RejectOnViolation
}

// AuditPolicyOverride records a manual override decision, gated by
// audit_config.log_overrides. An approval level outside the configured
// list is downgraded to "user" rather than rejected, matching the
// original's lenient validation.
func (e *PolicyEnforcer) AuditPolicyOverride(contentID, reason string, userID uuid.UUID, approvalLevel string, metadata map[string]interface{}, now time.Time) *AuditEntry {
	if !e.auditConfig.LogOverrides {
		return nil
	}

	level := approvalLevel
	if !containsLevel(e.auditConfig.ApprovalLevels, level) {
		level = "user"
	}

	entry := AuditEntry{
		ContentID:     contentID,
		Reason:        reason,
		UserID:        userID,
		ApprovalLevel: level,
		Timestamp:     now,
		Metadata:      metadata,
	}
	e.auditLog = append(e.auditLog, entry)
	return &entry
}

// GetAuditLog returns recorded audit entries, optionally filtered by
// content ID and/or user ID, ordered by timestamp.
func (e *PolicyEnforcer) GetAuditLog(contentID string, userID *uuid.UUID) []AuditEntry {
	var filtered []AuditEntry
	for _, entry := range e.auditLog {
		if contentID != "" && entry.ContentID != contentID {
			continue
		}
		if userID != nil && entry.UserID != *userID {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Timestamp.Before(filtered[j].Timestamp) })
	return filtered
}

func containsLevel(levels []string, level string) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
