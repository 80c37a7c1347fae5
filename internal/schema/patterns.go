// Package schema classifies persisted entity kinds into ownership
// patterns and resolves that classification by exact name first, then by
// prefix heuristic. An entity kind with no classification is a fatal
// configuration error — there is no permissive default.
package schema

import (
	"strings"
	"sync"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
)

// TablePattern classifies a persisted entity kind's ownership model.
type TablePattern string

const (
	UserOwned     TablePattern = "user_owned"
	TenantOwned   TablePattern = "tenant_owned"
	ScopeBased    TablePattern = "scope_based"
	SystemManaged TablePattern = "system"
)

// Registry maps entity kinds (table names) to their TablePattern.
// Registrations are expected to happen once at startup; thereafter the
// registry is read-only and safe for concurrent use by every worker.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]TablePattern
}

// NewRegistry builds a Registry seeded with the given exact-name
// classifications.
func NewRegistry(seed map[string]TablePattern) *Registry {
	patterns := make(map[string]TablePattern, len(seed))
	for k, v := range seed {
		patterns[k] = v
	}
	return &Registry{patterns: patterns}
}

// DefaultRegistry returns the registry seeded with the trust core's known
// entity kinds, mirroring the original TABLE_PATTERNS mapping: songs,
// personas, and sources are user-owned resources; model_* entries are
// tenant-owned; workspaces and analytics_events are scope-based; users,
// lookup_values, and tags are system-managed.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]TablePattern{
		"user_preferences": UserOwned,
		"songs":            UserOwned,
		"personas":         UserOwned,
		"sources":          UserOwned,
		"lyrics":           UserOwned,
		"styles":           UserOwned,
		"producer_notes":   UserOwned,

		"model_providers": TenantOwned,
		"model_families":  TenantOwned,
		"models":          TenantOwned,
		"model_catalog":   TenantOwned,
		"model_versions":  TenantOwned,

		"workspaces":       ScopeBased,
		"analytics_events": ScopeBased,

		"users":         SystemManaged,
		"lookup_values": SystemManaged,
		"tags":          SystemManaged,
		"blueprints":    SystemManaged,
	})
}

// Register adds or overwrites an exact-name classification.
func (r *Registry) Register(kind string, pattern TablePattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[kind] = pattern
}

// Lookup classifies an entity kind, trying an exact-name match first and
// falling back to prefix heuristics. Unknown kinds fail fast with
// UnsupportedTableError.
func (r *Registry) Lookup(kind string) (TablePattern, error) {
	r.mu.RLock()
	pattern, ok := r.patterns[kind]
	r.mu.RUnlock()
	if ok {
		return pattern, nil
	}

	if pattern, ok := prefixHeuristic(kind); ok {
		return pattern, nil
	}

	return "", errs.NewUnsupportedTableError(kind)
}

func prefixHeuristic(kind string) (TablePattern, bool) {
	switch {
	case strings.HasPrefix(kind, "model_"):
		return TenantOwned, true
	case strings.HasPrefix(kind, "user_"):
		return UserOwned, true
	case strings.HasSuffix(kind, "_analytics"), strings.HasPrefix(kind, "analytics_"):
		return ScopeBased, true
	default:
		return "", false
	}
}
