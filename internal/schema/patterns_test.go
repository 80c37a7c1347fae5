package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
)

func TestLookupExactMatch(t *testing.T) {
	reg := DefaultRegistry()
	pattern, err := reg.Lookup("songs")
	require.NoError(t, err)
	assert.Equal(t, UserOwned, pattern)
}

func TestLookupPrefixHeuristic(t *testing.T) {
	reg := NewRegistry(nil)

	pattern, err := reg.Lookup("model_catalog_custom")
	require.NoError(t, err)
	assert.Equal(t, TenantOwned, pattern)

	pattern, err = reg.Lookup("user_custom_table")
	require.NoError(t, err)
	assert.Equal(t, UserOwned, pattern)

	pattern, err = reg.Lookup("workspace_analytics")
	require.NoError(t, err)
	assert.Equal(t, ScopeBased, pattern)

	pattern, err = reg.Lookup("analytics_dashboard")
	require.NoError(t, err)
	assert.Equal(t, ScopeBased, pattern)
}

func TestLookupUnknownFailsFast(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Lookup("widgets")
	require.Error(t, err)

	var unsupported *errs.UnsupportedTableError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "widgets", unsupported.TableName)
}

func TestRegisterOverridesExactMatch(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("widgets", SystemManaged)

	pattern, err := reg.Lookup("widgets")
	require.NoError(t, err)
	assert.Equal(t, SystemManaged, pattern)
}
