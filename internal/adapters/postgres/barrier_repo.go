package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// BarrierRepo implements ports.BarrierRepository with pgx.
type BarrierRepo struct {
	db *DB
}

func NewBarrierRepo(db *DB) *BarrierRepo {
	return &BarrierRepo{db: db}
}

// Upsert replaces the barrier row and all of its definitions in one
// transaction.
func (r *BarrierRepo) Upsert(ctx context.Context, b *domain.Barrier) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO barriers (id, status)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()
		RETURNING created_at
	`, b.ID, string(b.Status)).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert barrier: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM barrier_definitions WHERE barrier_id = $1`, b.ID); err != nil {
		return fmt.Errorf("clear definitions: %w", err)
	}

	if len(b.Definitions) > 0 {
		batch := &pgx.Batch{}
		for i, d := range b.Definitions {
			batch.Queue(`
				INSERT INTO barrier_definitions (barrier_id, position, spatial_id, risk)
				VALUES ($1, $2, $3, $4)
			`, b.ID, i, d.SpatialID, d.Risk)
		}
		br := tx.SendBatch(ctx, batch)
		for range b.Definitions {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns a barrier with its definitions in insertion order.
func (r *BarrierRepo) GetByID(ctx context.Context, id string) (*domain.Barrier, error) {
	b := &domain.Barrier{}
	var status string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, status, created_at FROM barriers WHERE id = $1
	`, id).Scan(&b.ID, &status, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = domain.BarrierStatus(status)

	defs, err := r.definitions(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	b.Definitions = defs[id]
	return b, nil
}

// List returns barriers ordered by creation time, newest first.
func (r *BarrierRepo) List(ctx context.Context, limit, offset int) ([]domain.Barrier, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, status, created_at FROM barriers
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barriers []domain.Barrier
	var ids []string
	for rows.Next() {
		var b domain.Barrier
		var status string
		if err := rows.Scan(&b.ID, &status, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Status = domain.BarrierStatus(status)
		barriers = append(barriers, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return barriers, nil
	}

	defs, err := r.definitions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range barriers {
		barriers[i].Definitions = defs[barriers[i].ID]
	}
	return barriers, nil
}

// Delete removes a barrier; definitions cascade.
func (r *BarrierRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM barriers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BarrierRepo) definitions(ctx context.Context, ids []string) (map[string][]domain.BarrierDefinition, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT barrier_id, spatial_id, risk
		FROM barrier_definitions
		WHERE barrier_id = ANY($1)
		ORDER BY barrier_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.BarrierDefinition, len(ids))
	for rows.Next() {
		var barrierID string
		var d domain.BarrierDefinition
		if err := rows.Scan(&barrierID, &d.SpatialID, &d.Risk); err != nil {
			return nil, err
		}
		out[barrierID] = append(out[barrierID], d)
	}
	return out, rows.Err()
}
