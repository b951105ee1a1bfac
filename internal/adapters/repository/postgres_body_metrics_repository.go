package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var (
	_ domain.BodyMetricsRepository = (*PostgresBodyMetricsRepository)(nil)
	_ domain.BodyMetricsWriter     = (*PostgresBodyMetricsRepository)(nil)
)

type PostgresBodyMetricsRepository struct {
	db *sqlx.DB
}

func NewPostgresBodyMetricsRepository(db *sqlx.DB) *PostgresBodyMetricsRepository {
	return &PostgresBodyMetricsRepository{db: db}
}

func (r *PostgresBodyMetricsRepository) ListRecentWeights(ctx context.Context, userID string, limit int) ([]domain.WeightEntry, error) {
	entries := []domain.WeightEntry{}

	query := `
		SELECT user_id, entry_date, weight, unit FROM weight_entries
		WHERE user_id = $1
		ORDER BY entry_date DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresBodyMetricsRepository) ListFasts(ctx context.Context, userID string, start, end domain.Date) ([]domain.FastingEntry, error) {
	entries := []domain.FastingEntry{}

	query := `
		SELECT user_id, entry_date, target_hours, actual_hours, completed FROM fasting_entries
		WHERE user_id = $1
		  AND entry_date >= $2
		  AND entry_date <= $3
		ORDER BY entry_date ASC`

	if err := r.db.SelectContext(ctx, &entries, query, userID, start, end); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresBodyMetricsRepository) AddWeight(ctx context.Context, w *domain.WeightEntry) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(w.Unit) == "" {
		w.Unit = "kg"
	}

	query := `
		INSERT INTO weight_entries (user_id, entry_date, weight, unit)
		VALUES (:user_id, :entry_date, :weight, :unit)
		ON CONFLICT (user_id, entry_date) DO UPDATE
		SET weight = EXCLUDED.weight,
		    unit = EXCLUDED.unit`

	_, err := r.db.NamedExecContext(ctx, query, w)
	return err
}

func (r *PostgresBodyMetricsRepository) AddFast(ctx context.Context, f *domain.FastingEntry) error {
	if err := f.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO fasting_entries (user_id, entry_date, target_hours, actual_hours, completed)
		VALUES (:user_id, :entry_date, :target_hours, :actual_hours, :completed)
		ON CONFLICT (user_id, entry_date) DO UPDATE
		SET target_hours = EXCLUDED.target_hours,
		    actual_hours = EXCLUDED.actual_hours,
		    completed = EXCLUDED.completed`

	_, err := r.db.NamedExecContext(ctx, query, f)
	return err
}
