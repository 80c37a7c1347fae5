package repository

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/MeatyMusic-sub000/internal/rowguard"
	"github.com/miethe/MeatyMusic-sub000/internal/schema"
	"github.com/miethe/MeatyMusic-sub000/internal/security"
	"github.com/miethe/MeatyMusic-sub000/pkg/logger"
)

type widget struct {
	ID    uuid.UUID
	Owner uuid.UUID
	Rank  int
}

func (w *widget) OwnerColumn() string     { return "owner_id" }
func (w *widget) OwnerID() uuid.UUID      { return w.Owner }
func (w *widget) SetOwnerID(id uuid.UUID) { w.Owner = id }

// memoryBackend is a Backend[*widget] fake over an in-process slice, used
// to test the generic pagination/security engine without a real database.
type memoryBackend struct {
	rows []*widget
}

func (m *memoryBackend) FindByID(_ context.Context, id uuid.UUID, filter rowguard.Filter) (*widget, bool, error) {
	for _, w := range m.rows {
		if w.ID == id {
			if !filter.IsNoop && w.Owner != filter.Value {
				return nil, false, nil
			}
			return w, true, nil
		}
	}
	return nil, false, nil
}

func (m *memoryBackend) FindPage(_ context.Context, filter rowguard.Filter, cursor *Cursor, sortField string, sortDesc bool, limit int) ([]*widget, error) {
	var visible []*widget
	for _, w := range m.rows {
		if filter.IsNoop || w.Owner == filter.Value {
			visible = append(visible, w)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if sortDesc {
			return visible[i].Rank > visible[j].Rank
		}
		return visible[i].Rank < visible[j].Rank
	})

	if cursor != nil {
		var after int
		for i, w := range visible {
			if w.ID.String() == cursor.ID {
				after = i + 1
				break
			}
		}
		visible = visible[after:]
	}

	if len(visible) > limit+1 {
		visible = visible[:limit+1]
	}
	return visible, nil
}

func (m *memoryBackend) SortValue(entity *widget, sortField string) (string, uuid.UUID, error) {
	return itoa(entity.Rank), entity.ID, nil
}

func (m *memoryBackend) Insert(_ context.Context, entity *widget) (*widget, error) {
	entity.ID = uuid.New()
	m.rows = append(m.rows, entity)
	return entity, nil
}

func (m *memoryBackend) Update(_ context.Context, entity *widget) (*widget, error) {
	for i, w := range m.rows {
		if w.ID == entity.ID {
			m.rows[i] = entity
			return entity, nil
		}
	}
	return nil, nil
}

func (m *memoryBackend) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	for i, w := range m.rows {
		if w.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func newRepo(t *testing.T, ctx security.Context) (*Repository[*widget], *memoryBackend) {
	t.Helper()
	reg := schema.NewRegistry(map[string]schema.TablePattern{"widgets": schema.UserOwned})
	guard, err := rowguard.New[*widget](reg, "widgets", ctx)
	require.NoError(t, err)
	backend := &memoryBackend{}
	repo := New[*widget]("widgets", guard, backend, logger.New("test"))
	return repo, backend
}

func TestCreateAssignsOwnerAndGetByIDRoundTrips(t *testing.T) {
	userID := uuid.New()
	repo, _ := newRepo(t, security.UserContext(userID))

	created, err := repo.Create(context.Background(), &widget{Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, userID, created.Owner)

	fetched, found, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestGetByIDDeniesOtherUsersRow(t *testing.T) {
	owner := uuid.New()
	repo, backend := newRepo(t, security.UserContext(owner))
	other := &widget{ID: uuid.New(), Owner: uuid.New(), Rank: 1}
	backend.rows = append(backend.rows, other)

	_, found, err := repo.GetByID(context.Background(), other.ID)
	require.NoError(t, err)
	assert.False(t, found, "a row owned by a different user must read as not found")
}

func TestGetByIDOrRaiseReturnsEntityNotFound(t *testing.T) {
	repo, _ := newRepo(t, security.UserContext(uuid.New()))
	_, err := repo.GetByIDOrRaise(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENTITY_NOT_FOUND")
}

func TestListPaginatedProducesNextCursorWhenMoreRowsExist(t *testing.T) {
	userID := uuid.New()
	repo, backend := newRepo(t, security.UserContext(userID))
	for i := 0; i < 5; i++ {
		backend.rows = append(backend.rows, &widget{ID: uuid.New(), Owner: userID, Rank: i})
	}

	page, err := repo.ListPaginated(context.Background(), Page{Limit: 2, SortField: "rank", SortDesc: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	next, err := repo.ListPaginated(context.Background(), Page{Limit: 2, SortField: "rank", SortDesc: true, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Items, 2)
	for _, item := range next.Items {
		for _, prior := range page.Items {
			assert.NotEqual(t, prior.ID, item.ID)
		}
	}
}

func TestListPaginatedLastPageHasNoCursor(t *testing.T) {
	userID := uuid.New()
	repo, backend := newRepo(t, security.UserContext(userID))
	backend.rows = append(backend.rows, &widget{ID: uuid.New(), Owner: userID, Rank: 1})

	page, err := repo.ListPaginated(context.Background(), Page{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, page.NextCursor)
}

func TestUpdateMutatesOwnedEntity(t *testing.T) {
	userID := uuid.New()
	repo, backend := newRepo(t, security.UserContext(userID))
	w := &widget{ID: uuid.New(), Owner: userID, Rank: 1}
	backend.rows = append(backend.rows, w)

	updated, err := repo.Update(context.Background(), w.ID, func(e *widget) *widget {
		e.Rank = 99
		return e
	})
	require.NoError(t, err)
	assert.Equal(t, 99, updated.Rank)
}

func TestDeleteReturnsFalseForInaccessibleRow(t *testing.T) {
	repo, backend := newRepo(t, security.UserContext(uuid.New()))
	other := &widget{ID: uuid.New(), Owner: uuid.New()}
	backend.rows = append(backend.rows, other)

	deleted, err := repo.Delete(context.Background(), other.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
