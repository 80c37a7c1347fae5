// Package sqlrepo provides Postgres-backed repository.Backend
// implementations. The SQL dialect lives entirely here; internal/repository
// stays agnostic of it, mediating only security and pagination.
package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/miethe/MeatyMusic-sub000/internal/repository"
	"github.com/miethe/MeatyMusic-sub000/internal/rowguard"
)

// Source is a retrievable knowledge source a song generation run may
// consult — file, web, api, or mcp-backed, user-owned.
type Source struct {
	ID         uuid.UUID
	Owner      uuid.UUID
	Name       string
	SourceType string // file | web | api | mcp
	MCPScope   string
	Tags       []string
	Config     map[string]interface{}
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

func (s *Source) OwnerColumn() string     { return "owner_id" }
func (s *Source) OwnerID() uuid.UUID      { return s.Owner }
func (s *Source) SetOwnerID(id uuid.UUID) { s.Owner = id }

var _ rowguard.UserOwnable = (*Source)(nil)

// SourceBackend is the Postgres-backed repository.Backend[*Source].
type SourceBackend struct {
	db *sql.DB
}

// NewSourceBackend wraps an open database handle.
func NewSourceBackend(db *sql.DB) *SourceBackend {
	return &SourceBackend{db: db}
}

var _ repository.Backend[*Source] = (*SourceBackend)(nil)

const sourceColumns = `id, owner_id, name, source_type, mcp_config, tags, created_at, updated_at, deleted_at`

func (b *SourceBackend) scanRow(row *sql.Row) (*Source, error) {
	var s Source
	var config []byte
	var tags pq.StringArray
	var deletedAt sql.NullTime

	if err := row.Scan(&s.ID, &s.Owner, &s.Name, &s.SourceType, &config, &tags,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if err := unmarshalConfig(config, &s); err != nil {
		return nil, err
	}
	s.Tags = []string(tags)
	if deletedAt.Valid {
		s.DeletedAt = &deletedAt.Time
	}
	return &s, nil
}

func unmarshalConfig(raw []byte, s *Source) error {
	if len(raw) == 0 {
		return nil
	}
	s.Config = map[string]interface{}{}
	if err := json.Unmarshal(raw, &s.Config); err != nil {
		return fmt.Errorf("unmarshal mcp_config: %w", err)
	}
	if scope, ok := s.Config["scope"].(string); ok {
		s.MCPScope = scope
	}
	return nil
}

// FindByID fetches one source by id, applying filter unless it is a
// no-op. Soft-deleted rows never match.
func (b *SourceBackend) FindByID(ctx context.Context, id uuid.UUID, filter rowguard.Filter) (*Source, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM sources WHERE id = $1 AND deleted_at IS NULL`, sourceColumns)
	args := []interface{}{id}
	if !filter.IsNoop {
		query += fmt.Sprintf(" AND %s = $2", filter.Column)
		args = append(args, filter.Value)
	}

	row := b.db.QueryRowContext(ctx, query, args...)
	source, err := b.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find source by id: %w", err)
	}
	return source, true, nil
}

// FindPage fetches up to limit+1 rows ordered by (sortField, id).
func (b *SourceBackend) FindPage(ctx context.Context, filter rowguard.Filter, cursor *repository.Cursor, sortField string, sortDesc bool, limit int) ([]*Source, error) {
	if !isValidSourceSortField(sortField) {
		return nil, fmt.Errorf("sources has no sortable field %q", sortField)
	}

	order := "ASC"
	cmp := ">"
	if sortDesc {
		order = "DESC"
		cmp = "<"
	}

	query := fmt.Sprintf(`SELECT %s FROM sources WHERE deleted_at IS NULL`, sourceColumns)
	args := []interface{}{}
	argN := 1

	if !filter.IsNoop {
		query += fmt.Sprintf(" AND %s = $%d", filter.Column, argN)
		args = append(args, filter.Value)
		argN++
	}
	if cursor != nil {
		query += fmt.Sprintf(" AND (%s %s $%d OR (%s = $%d AND id %s $%d))",
			sortField, cmp, argN, sortField, argN, cmp, argN+1)
		args = append(args, cursor.Value, cursor.ID)
		argN += 2
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT $%d", sortField, order, order, argN)
	args = append(args, limit+1)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var results []*Source
	for rows.Next() {
		var s Source
		var config []byte
		var tags pq.StringArray
		var deletedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Owner, &s.Name, &s.SourceType, &config, &tags,
			&s.CreatedAt, &s.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if err := unmarshalConfig(config, &s); err != nil {
			return nil, err
		}
		s.Tags = []string(tags)
		if deletedAt.Valid {
			s.DeletedAt = &deletedAt.Time
		}
		results = append(results, &s)
	}
	return results, rows.Err()
}

func isValidSourceSortField(field string) bool {
	switch field {
	case "created_at", "updated_at", "name", "source_type":
		return true
	default:
		return false
	}
}

// SortValue extracts the cursor key for a source.
func (b *SourceBackend) SortValue(entity *Source, sortField string) (string, uuid.UUID, error) {
	switch sortField {
	case "created_at":
		return entity.CreatedAt.Format(time.RFC3339Nano), entity.ID, nil
	case "updated_at":
		return entity.UpdatedAt.Format(time.RFC3339Nano), entity.ID, nil
	case "name":
		return entity.Name, entity.ID, nil
	case "source_type":
		return entity.SourceType, entity.ID, nil
	default:
		return "", uuid.UUID{}, fmt.Errorf("sources has no sortable field %q", sortField)
	}
}

// Insert creates a new source row.
func (b *SourceBackend) Insert(ctx context.Context, s *Source) (*Source, error) {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal mcp_config: %w", err)
	}

	query := `
		INSERT INTO sources (id, owner_id, name, source_type, mcp_config, tags, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at
	`
	row := b.db.QueryRowContext(ctx, query, s.Owner, s.Name, s.SourceType, config, pq.Array(s.Tags))
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	return s, nil
}

// Update persists an in-place mutation of an existing source.
func (b *SourceBackend) Update(ctx context.Context, s *Source) (*Source, error) {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal mcp_config: %w", err)
	}

	query := `
		UPDATE sources SET name = $2, source_type = $3, mcp_config = $4, tags = $5, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`
	row := b.db.QueryRowContext(ctx, query, s.ID, s.Name, s.SourceType, config, pq.Array(s.Tags))
	if err := row.Scan(&s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	return s, nil
}

// Delete soft-deletes a source (deleted_at timestamp), matching the
// original repository's soft-delete convention.
func (b *SourceBackend) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := b.db.ExecContext(ctx, `UPDATE sources SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("delete source: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check affected rows: %w", err)
	}
	return rows > 0, nil
}

// GetByScope lists active sources whose mcp_config scope matches,
// mirroring SourceRepository.get_by_scope.
func (b *SourceBackend) GetByScope(ctx context.Context, filter rowguard.Filter, scope string) ([]*Source, error) {
	query := fmt.Sprintf(`SELECT %s FROM sources WHERE deleted_at IS NULL AND mcp_config->>'scope' = $1`, sourceColumns)
	args := []interface{}{scope}
	if !filter.IsNoop {
		query += fmt.Sprintf(" AND %s = $2", filter.Column)
		args = append(args, filter.Value)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get sources by scope: %w", err)
	}
	defer rows.Close()
	return scanSources(rows)
}

// SearchByTags lists active sources that share any of the given tags,
// using Postgres's array overlap operator, mirroring
// SourceRepository.search_by_tags.
func (b *SourceBackend) SearchByTags(ctx context.Context, filter rowguard.Filter, tags []string) ([]*Source, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM sources WHERE deleted_at IS NULL AND tags && $1`, sourceColumns)
	args := []interface{}{pq.Array(tags)}
	if !filter.IsNoop {
		query += fmt.Sprintf(" AND %s = $2", filter.Column)
		args = append(args, filter.Value)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search sources by tags: %w", err)
	}
	defer rows.Close()
	return scanSources(rows)
}

func scanSources(rows *sql.Rows) ([]*Source, error) {
	var results []*Source
	for rows.Next() {
		var s Source
		var config []byte
		var tags pq.StringArray
		var deletedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Owner, &s.Name, &s.SourceType, &config, &tags,
			&s.CreatedAt, &s.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if err := unmarshalConfig(config, &s); err != nil {
			return nil, err
		}
		s.Tags = []string(tags)
		if deletedAt.Valid {
			s.DeletedAt = &deletedAt.Time
		}
		results = append(results, &s)
	}
	return results, rows.Err()
}
