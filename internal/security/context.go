// Package security implements the immutable per-request SecurityContext
// that every Row Guard and Repository operation is threaded through.
package security

import (
	"github.com/google/uuid"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
)

// Context is the immutable, per-request record of caller identity and
// permissions. "With" operations return a new Context rather than
// mutating the receiver.
type Context struct {
	userID      *uuid.UUID
	tenantID    *uuid.UUID
	scope       string
	permissions map[string]struct{}
	metadata    map[string]interface{}
}

// New builds an empty Context. Use the With* constructors or methods to
// populate it.
func New() Context {
	return Context{permissions: map[string]struct{}{}, metadata: map[string]interface{}{}}
}

// UserContext builds a Context scoped to a single user.
func UserContext(userID uuid.UUID, permissions ...string) Context {
	c := New()
	c.userID = &userID
	c.permissions = internSet(permissions)
	return c
}

// TenantContext builds a Context scoped to a tenant, optionally also
// carrying the acting user's identity.
func TenantContext(tenantID uuid.UUID, userID *uuid.UUID, permissions ...string) Context {
	c := New()
	c.tenantID = &tenantID
	c.userID = userID
	c.permissions = internSet(permissions)
	return c
}

// DualContext builds a Context carrying both a user and a tenant identity.
func DualContext(userID, tenantID uuid.UUID, permissions ...string) Context {
	c := New()
	c.userID = &userID
	c.tenantID = &tenantID
	c.permissions = internSet(permissions)
	return c
}

func internSet(permissions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return set
}

// HasUser reports whether the context carries a user identity.
func (c Context) HasUser() bool { return c.userID != nil }

// HasTenant reports whether the context carries a tenant identity.
func (c Context) HasTenant() bool { return c.tenantID != nil }

// UserID returns the user identifier, or the zero UUID if absent.
func (c Context) UserID() uuid.UUID {
	if c.userID == nil {
		return uuid.UUID{}
	}
	return *c.userID
}

// TenantID returns the tenant identifier, or the zero UUID if absent.
func (c Context) TenantID() uuid.UUID {
	if c.tenantID == nil {
		return uuid.UUID{}
	}
	return *c.tenantID
}

// Scope returns the context's scope string, if any.
func (c Context) Scope() string { return c.scope }

// IsEmpty reports whether the context carries neither a user nor a tenant
// identity — such a context may only perform system-managed operations.
func (c Context) IsEmpty() bool { return !c.HasUser() && !c.HasTenant() }

// HasPermission reports whether the given permission is granted.
func (c Context) HasPermission(permission string) bool {
	_, ok := c.permissions[permission]
	return ok
}

// RequireUser fails with SecurityContextError if no user identity is
// present.
func (c Context) RequireUser(operation string) error {
	if !c.HasUser() {
		return errs.NewSecurityContextError(operation, "user", "user context required for this operation")
	}
	return nil
}

// RequireTenant fails with SecurityContextError if no tenant identity is
// present.
func (c Context) RequireTenant(operation string) error {
	if !c.HasTenant() {
		return errs.NewSecurityContextError(operation, "tenant", "tenant context required for this operation")
	}
	return nil
}

// RequirePermission fails with SecurityContextError if the permission is
// not granted.
func (c Context) RequirePermission(operation, permission string) error {
	if !c.HasPermission(permission) {
		return errs.NewSecurityContextError(operation, "permission",
			"permission '"+permission+"' required for this operation")
	}
	return nil
}

// WithUser returns a copy of the context with the given user identity.
func (c Context) WithUser(userID uuid.UUID) Context {
	next := c.clone()
	next.userID = &userID
	return next
}

// WithTenant returns a copy of the context with the given tenant identity.
func (c Context) WithTenant(tenantID uuid.UUID) Context {
	next := c.clone()
	next.tenantID = &tenantID
	return next
}

// WithScope returns a copy of the context with the given scope string.
func (c Context) WithScope(scope string) Context {
	next := c.clone()
	next.scope = scope
	return next
}

// WithMetadata returns a copy of the context carrying the given metadata
// key/value pair.
func (c Context) WithMetadata(key string, value interface{}) Context {
	next := c.clone()
	next.metadata[key] = value
	return next
}

// Metadata returns the value stored under key, if any.
func (c Context) Metadata(key string) (interface{}, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

func (c Context) clone() Context {
	permissions := make(map[string]struct{}, len(c.permissions))
	for k := range c.permissions {
		permissions[k] = struct{}{}
	}
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	return Context{
		userID:      c.userID,
		tenantID:    c.tenantID,
		scope:       c.scope,
		permissions: permissions,
		metadata:    metadata,
	}
}
