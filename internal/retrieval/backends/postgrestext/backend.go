// Package postgrestext adapts a Postgres full-text column to the
// retrieval.UpstreamClient interface, using ts_rank for relevance scoring.
package postgrestext

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/miethe/MeatyMusic-sub000/internal/retrieval"
)

// Backend queries one (table, text column) pair via Postgres's built-in
// text search. seed is accepted for interface symmetry with the other
// backends but does not affect ts_rank ordering — ties are broken by the
// retriever itself, not here.
type Backend struct {
	db          *sql.DB
	table       string
	textColumn  string
	metaColumn  string
	timeColumn  string
}

// Config names the table and columns a Backend reads from.
type Config struct {
	Table      string
	TextColumn string
	MetaColumn string // nullable JSONB column, may be ""
	TimeColumn string
}

// NewBackend wraps an open database handle configured for one table.
func NewBackend(db *sql.DB, cfg Config) *Backend {
	return &Backend{db: db, table: cfg.Table, textColumn: cfg.TextColumn, metaColumn: cfg.MetaColumn, timeColumn: cfg.TimeColumn}
}

var _ retrieval.UpstreamClient = (*Backend)(nil)

func (b *Backend) Capabilities() []string {
	return []string{"full_text_search"}
}

func (b *Backend) Search(ctx context.Context, query string, topK int, seed int64) ([]retrieval.Candidate, error) {
	metaSelect := "NULL"
	if b.metaColumn != "" {
		metaSelect = b.metaColumn
	}

	stmt := fmt.Sprintf(
		`SELECT %s, ts_rank(to_tsvector('english', %s), plainto_tsquery('english', $1)) AS rank, %s, %s
		 FROM %s
		 WHERE to_tsvector('english', %s) @@ plainto_tsquery('english', $1)
		 ORDER BY rank DESC
		 LIMIT $2`,
		b.textColumn, b.textColumn, metaSelect, b.timeColumn, b.table, b.textColumn,
	)

	limit := topK
	if limit <= 0 {
		limit = 20
	}

	rows, err := b.db.QueryContext(ctx, stmt, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgrestext search: %w", err)
	}
	defer rows.Close()

	var candidates []retrieval.Candidate
	for rows.Next() {
		var text string
		var rank float64
		var metaRaw sql.NullString
		var ts time.Time
		if err := rows.Scan(&text, &rank, &metaRaw, &ts); err != nil {
			return nil, fmt.Errorf("postgrestext scan: %w", err)
		}

		metadata := map[string]interface{}{}
		if metaRaw.Valid && metaRaw.String != "" {
			if err := json.Unmarshal([]byte(metaRaw.String), &metadata); err != nil {
				return nil, fmt.Errorf("postgrestext unmarshal metadata: %w", err)
			}
		}

		candidates = append(candidates, retrieval.Candidate{
			Text:      text,
			Score:     rank,
			Metadata:  metadata,
			Timestamp: ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgrestext row iteration: %w", err)
	}
	return candidates, nil
}
