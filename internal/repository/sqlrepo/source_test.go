package sqlrepo

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/MeatyMusic-sub000/internal/rowguard"
)

func newMockBackend(t *testing.T) (*SourceBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSourceBackend(db), mock
}

func TestFindByIDAppliesOwnerFilter(t *testing.T) {
	backend, mock := newMockBackend(t)
	id := uuid.New()
	owner := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "name", "source_type", "mcp_config", "tags", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, owner, "lyric corpus", "file", []byte(`{"scope":"lyrics"}`), "{music,lyrics}", now, now, nil)

	mock.ExpectQuery(`SELECT .* FROM sources WHERE id = \$1 AND deleted_at IS NULL AND owner_id = \$2`).
		WithArgs(id, owner).
		WillReturnRows(rows)

	source, found, err := backend.FindByID(context.Background(), id, rowguard.Filter{Column: "owner_id", Value: owner})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "lyric corpus", source.Name)
	assert.Equal(t, "lyrics", source.MCPScope)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDReturnsNotFoundOnNoRows(t *testing.T) {
	backend, mock := newMockBackend(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM sources`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "name", "source_type", "mcp_config", "tags", "created_at", "updated_at", "deleted_at"}))

	_, found, err := backend.FindByID(context.Background(), id, rowguard.Filter{IsNoop: true})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsertAssignsGeneratedFields(t *testing.T) {
	backend, mock := newMockBackend(t)
	owner := uuid.New()
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO sources`).
		WithArgs(owner, "web crawl", "web", []byte(`{}`), sqlmockAnyArray{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	source := &Source{Owner: owner, Name: "web crawl", SourceType: "web", Config: map[string]interface{}{}}
	created, err := backend.Insert(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
}

func TestDeleteReturnsFalseWhenNoRowsAffected(t *testing.T) {
	backend, mock := newMockBackend(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE sources SET deleted_at`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := backend.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// sqlmockAnyArray matches any driver value, used where the exact
// pq.Array encoding of the args isn't worth pinning down in a test.
type sqlmockAnyArray struct{}

func (sqlmockAnyArray) Match(interface{}) bool { return true }
