package rowguard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
	"github.com/miethe/MeatyMusic-sub000/internal/schema"
	"github.com/miethe/MeatyMusic-sub000/internal/security"
)

// song is a minimal USER_OWNED entity (songs use owner_id, per the
// original table layout).
type song struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (s *song) OwnerColumn() string       { return "owner_id" }
func (s *song) OwnerID() uuid.UUID        { return s.OwnerID }
func (s *song) SetOwnerID(id uuid.UUID)   { s.OwnerID = id }

// modelCatalogRow is a TENANT_OWNED entity.
type modelCatalogRow struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (m *modelCatalogRow) TenantIDValue() uuid.UUID    { return m.TenantID }
func (m *modelCatalogRow) SetTenantID(id uuid.UUID)    { m.TenantID = id }

// analyticsEvent is SCOPE_BASED with no ownership columns at all.
type analyticsEvent struct {
	ID uuid.UUID
}

// workspace is SCOPE_BASED with a tenant_id column.
type workspace struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (w *workspace) TenantIDValue() uuid.UUID { return w.TenantID }
func (w *workspace) SetTenantID(id uuid.UUID) { w.TenantID = id }

func registry() *schema.Registry {
	return schema.NewRegistry(map[string]schema.TablePattern{
		"songs":            schema.UserOwned,
		"model_catalog":    schema.TenantOwned,
		"analytics_events": schema.ScopeBased,
		"workspaces":       schema.ScopeBased,
		"users":            schema.SystemManaged,
	})
}

func TestUserOwnedFilterRequiresUserContext(t *testing.T) {
	reg := registry()
	guard, err := New[*song](reg, "songs", security.New())
	require.NoError(t, err)

	_, err = guard.FilterQuery()
	require.Error(t, err)
	var secErr *errs.SecurityContextError
	require.ErrorAs(t, err, &secErr)
}

func TestUserOwnedFilterUsesOwnerColumn(t *testing.T) {
	reg := registry()
	userID := uuid.New()
	guard, err := New[*song](reg, "songs", security.UserContext(userID))
	require.NoError(t, err)

	filter, err := guard.FilterQuery()
	require.NoError(t, err)
	assert.Equal(t, "owner_id", filter.Column)
	assert.Equal(t, userID, filter.Value)
	assert.False(t, filter.IsNoop)
}

func TestTenantOwnedFilter(t *testing.T) {
	reg := registry()
	tenantID := uuid.New()
	guard, err := New[*modelCatalogRow](reg, "model_catalog", security.TenantContext(tenantID, nil))
	require.NoError(t, err)

	filter, err := guard.FilterQuery()
	require.NoError(t, err)
	assert.Equal(t, "tenant_id", filter.Column)
	assert.Equal(t, tenantID, filter.Value)
}

func TestScopeBasedDeniesWithNoOwnershipColumns(t *testing.T) {
	reg := registry()
	userID := uuid.New()
	guard, err := New[*analyticsEvent](reg, "analytics_events", security.UserContext(userID))
	require.NoError(t, err)

	_, err = guard.FilterQuery()
	require.Error(t, err)
	var filterErr *errs.SecurityFilterError
	require.ErrorAs(t, err, &filterErr)
}

func TestScopeBasedFallsBackToTenantWithoutUser(t *testing.T) {
	reg := registry()
	tenantID := uuid.New()
	guard, err := New[*workspace](reg, "workspaces", security.TenantContext(tenantID, nil))
	require.NoError(t, err)

	filter, err := guard.FilterQuery()
	require.NoError(t, err)
	assert.Equal(t, "tenant_id", filter.Column)
	assert.Equal(t, tenantID, filter.Value)
}

func TestSystemManagedHasNoFilter(t *testing.T) {
	reg := registry()
	guard, err := New[*analyticsEvent](reg, "users", security.New())
	require.NoError(t, err)

	filter, err := guard.FilterQuery()
	require.NoError(t, err)
	assert.True(t, filter.IsNoop)
}

func TestAssignOwnerUserOwned(t *testing.T) {
	reg := registry()
	userID := uuid.New()
	guard, err := New[*song](reg, "songs", security.UserContext(userID))
	require.NoError(t, err)

	s := &song{ID: uuid.New()}
	require.NoError(t, guard.AssignOwner(s))
	assert.Equal(t, userID, s.OwnerID)
}

func TestRequireOwnerDeniesMismatch(t *testing.T) {
	reg := registry()
	guard, err := New[*song](reg, "songs", security.UserContext(uuid.New()))
	require.NoError(t, err)

	other := &song{ID: uuid.New(), OwnerID: uuid.New()}
	_, err = guard.RequireOwner(other, true)
	require.Error(t, err)
}

func TestRequireOwnerNotFoundIsIndistinguishableFromDenied(t *testing.T) {
	reg := registry()
	guard, err := New[*song](reg, "songs", security.UserContext(uuid.New()))
	require.NoError(t, err)

	var zero *song
	_, err = guard.RequireOwner(zero, false)
	require.Error(t, err)
	var secErr *errs.SecurityContextError
	require.ErrorAs(t, err, &secErr)
}

// Scenario 1 from the spec: tenant isolation between adjacent rows.
func TestTenantIsolationScenario(t *testing.T) {
	reg := registry()
	tenantA := uuid.New()
	tenantB := uuid.New()

	guardB, err := New[*modelCatalogRow](reg, "model_catalog", security.TenantContext(tenantB, nil))
	require.NoError(t, err)

	rowOwnedByA := &modelCatalogRow{ID: uuid.New(), TenantID: tenantA}
	_, err = guardB.RequireOwner(rowOwnedByA, true)
	require.Error(t, err)
}

// Scenario 2 from the spec: scope-based denial with no ownership columns.
func TestScopeBasedDenialScenario(t *testing.T) {
	reg := registry()
	guard, err := New[*analyticsEvent](reg, "analytics_events", security.DualContext(uuid.New(), uuid.New()))
	require.NoError(t, err)

	_, err = guard.FilterQuery()
	require.Error(t, err)
	var filterErr *errs.SecurityFilterError
	require.ErrorAs(t, err, &filterErr)
}
