// Package repository provides the generic, security-mediated CRUD and
// cursor-pagination engine every entity-kind repository is built from.
// The SQL dialect itself is an external collaborator: Repository[T] only
// knows how to ask a Backend[T] for rows and how to apply the Unified Row
// Guard around that call — it never builds SQL itself.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miethe/MeatyMusic-sub000/internal/errs"
	"github.com/miethe/MeatyMusic-sub000/internal/rowguard"
	"github.com/miethe/MeatyMusic-sub000/pkg/logger"
)

// slowOperationThreshold mirrors the original repository's 3ms warning
// threshold for a single backend round trip.
const slowOperationThreshold = 3 * time.Millisecond

// Page describes a single cursor-paginated read.
type Page struct {
	Limit     int
	Cursor    string // opaque, from a prior PageResult.NextCursor
	SortField string
	SortDesc  bool
}

// normalize fills in the original repository's defaults: limit 20,
// sort by updated_at descending.
func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.SortField == "" {
		p.SortField = "updated_at"
		p.SortDesc = true
	}
	return p
}

// PageResult is the result of a cursor-paginated list operation.
type PageResult[T any] struct {
	Items      []T
	NextCursor string
}

// Backend is implemented once per entity kind by a concrete storage
// adapter (e.g. sqlrepo). It knows the table's columns and SQL dialect;
// Repository[T] knows only the security and pagination protocol around
// it.
type Backend[T any] interface {
	// FindByID fetches one row by primary key, applying filter if it is
	// not a no-op. ok is false when no matching row exists.
	FindByID(ctx context.Context, id uuid.UUID, filter rowguard.Filter) (entity T, ok bool, err error)

	// FindPage fetches up to limit+1 rows ordered by (sortField, id) for
	// tiebreaking, after filter and the optional cursor position. The
	// caller (Repository[T]) is responsible for trimming to limit and
	// building the next cursor.
	FindPage(ctx context.Context, filter rowguard.Filter, cursor *Cursor, sortField string, sortDesc bool, limit int) ([]T, error)

	// SortValue extracts the string form of entity's sortField value and
	// its primary key, for next-cursor construction.
	SortValue(entity T, sortField string) (value string, id uuid.UUID, err error)

	// Insert persists a new row and returns it with any
	// database-assigned fields (id, timestamps) populated.
	Insert(ctx context.Context, entity T) (T, error)

	// Update persists the mutated entity (already fetched and
	// ownership-checked by the caller) and returns the stored form.
	Update(ctx context.Context, entity T) (T, error)

	// Delete removes the row by primary key. found is false if no row
	// matched.
	Delete(ctx context.Context, id uuid.UUID) (found bool, err error)
}

// Repository mediates every read/write for one entity kind through its
// rowguard.Guard, then delegates the actual I/O to a Backend.
type Repository[T any] struct {
	kind    string
	guard   *rowguard.Guard[T]
	backend Backend[T]
	log     *logger.Logger
}

// New builds a Repository for kind, wiring guard and backend together.
func New[T any](kind string, guard *rowguard.Guard[T], backend Backend[T], log *logger.Logger) *Repository[T] {
	return &Repository[T]{kind: kind, guard: guard, backend: backend, log: log}
}

func (r *Repository[T]) timeOperation(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if elapsed > slowOperationThreshold && r.log != nil {
		r.log.Warn("repository operation exceeded performance threshold", map[string]interface{}{
			"entity_kind": r.kind,
			"operation":   operation,
			"elapsed_ms":  elapsed.Milliseconds(),
		})
	}
	return err
}

// GetByID fetches one entity, applying row-level security. A row that
// exists but is not owned by the caller is indistinguishable from a
// missing row — both surface as ENTITY_NOT_FOUND from GetByIDOrRaise.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, bool, error) {
	var zero T
	var entity T
	var found bool

	err := r.timeOperation("get_by_id", func() error {
		filter, err := r.guard.FilterQuery()
		if err != nil {
			return err
		}
		entity, found, err = r.backend.FindByID(ctx, id, filter)
		return err
	})
	if err != nil {
		return zero, false, r.classify(err, "get_by_id")
	}
	if !found {
		return zero, false, nil
	}

	entity, err = r.guard.RequireOwner(entity, true)
	if err != nil {
		return zero, false, nil
	}
	return entity, true, nil
}

// GetByIDOrRaise fetches one entity, raising ENTITY_NOT_FOUND if the row
// does not exist or is not visible to the caller.
func (r *Repository[T]) GetByIDOrRaise(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	entity, found, err := r.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, errs.New(errs.CodeEntityNotFound, "get_by_id",
			fmt.Sprintf("%s %s not found or not accessible", r.kind, id)).WithEntity(r.kind, string(r.guard.Pattern()))
	}
	return entity, nil
}

// ListPaginated lists entities with cursor-based pagination, filtered by
// row-level security.
func (r *Repository[T]) ListPaginated(ctx context.Context, page Page) (PageResult[T], error) {
	page = page.normalize()
	var result PageResult[T]

	err := r.timeOperation("list_paginated", func() error {
		filter, err := r.guard.FilterQuery()
		if err != nil {
			return err
		}

		var cursor *Cursor
		if page.Cursor != "" {
			decoded, err := DecodeCursor(page.Cursor)
			if err != nil {
				return errs.New(errs.CodeBadRequest, "list_paginated", err.Error())
			}
			cursor = &decoded
		}

		rows, err := r.backend.FindPage(ctx, filter, cursor, page.SortField, page.SortDesc, page.Limit)
		if err != nil {
			return err
		}

		if len(rows) > page.Limit {
			rows = rows[:page.Limit]
			last := rows[len(rows)-1]
			value, id, err := r.backend.SortValue(last, page.SortField)
			if err != nil {
				return err
			}
			result.NextCursor = EncodeCursor(page.SortField, value, id)
		}
		result.Items = rows
		return nil
	})
	if err != nil {
		return PageResult[T]{}, r.classify(err, "list_paginated")
	}
	return result, nil
}

// Create assigns ownership fields via the row guard, then persists the
// entity through the backend.
func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	if err := r.guard.AssignOwner(entity); err != nil {
		return zero, err
	}

	var created T
	err := r.timeOperation("create", func() error {
		var err error
		created, err = r.backend.Insert(ctx, entity)
		return err
	})
	if err != nil {
		return zero, r.classify(err, "create")
	}
	return created, nil
}

// Update fetches the entity (applying security), applies mutate, and
// persists the result.
func (r *Repository[T]) Update(ctx context.Context, id uuid.UUID, mutate func(T) T) (T, error) {
	var zero T
	entity, err := r.GetByIDOrRaise(ctx, id)
	if err != nil {
		return zero, err
	}
	mutated := mutate(entity)

	var updated T
	err = r.timeOperation("update", func() error {
		var err error
		updated, err = r.backend.Update(ctx, mutated)
		return err
	})
	if err != nil {
		return zero, r.classify(err, "update")
	}
	return updated, nil
}

// Delete removes the entity after confirming the caller may see it.
// Returns false if the row does not exist or is not visible — never
// distinguishing the two, consistent with GetByID.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	_, found, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	var deleted bool
	err = r.timeOperation("delete", func() error {
		var err error
		deleted, err = r.backend.Delete(ctx, id)
		return err
	})
	if err != nil {
		return false, r.classify(err, "delete")
	}
	return deleted, nil
}

// classify wraps a raw backend error in a DATABASE_ERROR CodedError
// unless it is already one of the package's structured errors.
func (r *Repository[T]) classify(err error, operation string) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *errs.CodedError, *errs.SecurityContextError, *errs.SecurityFilterError, *errs.UnsupportedTableError:
		return err
	default:
		return errs.Wrap(errs.CodeDatabaseError, operation, "backend operation failed", err).WithEntity(r.kind, string(r.guard.Pattern()))
	}
}
