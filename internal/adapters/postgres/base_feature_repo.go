package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
)

var _ ports.BaseFeatureSource = (*BaseFeatureRepo)(nil)

// BaseFeatureRepo stores the base collection as one GeoJSON Feature per row.
type BaseFeatureRepo struct {
	db *DB
}

func NewBaseFeatureRepo(db *DB) *BaseFeatureRepo {
	return &BaseFeatureRepo{db: db}
}

// Load returns every stored feature in position order.
func (r *BaseFeatureRepo) Load(ctx context.Context) (domain.FeatureCollection, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT position, feature FROM base_features ORDER BY position
	`)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("query base features: %w", err)
	}
	defer rows.Close()

	fc := domain.NewFeatureCollection()
	for rows.Next() {
		var (
			position int
			raw      []byte
		)
		if err := rows.Scan(&position, &raw); err != nil {
			return domain.FeatureCollection{}, err
		}
		f, err := geocodec.DecodeFeature(raw)
		if err != nil {
			return domain.FeatureCollection{}, fmt.Errorf("base feature at position %d: %w", position, err)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, rows.Err()
}

// ReplaceAll swaps the stored collection for fc in one transaction.
func (r *BaseFeatureRepo) ReplaceAll(ctx context.Context, fc domain.FeatureCollection) error {
	if err := fc.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM base_features`); err != nil {
		return fmt.Errorf("delete base features: %w", err)
	}

	batch := &pgx.Batch{}
	for i, f := range fc.Features {
		data, err := geocodec.EncodeFeatureJSON(f)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		batch.Queue(`
			INSERT INTO base_features (position, feature) VALUES ($1, $2::jsonb)
		`, i, string(data))
	}
	br := tx.SendBatch(ctx, batch)
	for range fc.Features {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}
