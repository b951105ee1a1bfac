package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var (
	_ domain.DayLogRepository  = (*PostgresDayLogRepository)(nil)
	_ domain.DayLogWriter      = (*PostgresDayLogRepository)(nil)
	_ domain.BatchDayLogReader = (*PostgresDayLogRepository)(nil)
)

type PostgresDayLogRepository struct {
	db *sqlx.DB
}

func NewPostgresDayLogRepository(db *sqlx.DB) *PostgresDayLogRepository {
	return &PostgresDayLogRepository{db: db}
}

// dayLogRow mirrors day_logs; tasks is JSONB and decoded by hand.
type dayLogRow struct {
	UserID    string      `db:"user_id"`
	Date      domain.Date `db:"log_date"`
	Tasks     []byte      `db:"tasks"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r dayLogRow) toDomain() (domain.RawDayLog, error) {
	log := domain.RawDayLog{UserID: r.UserID, Date: r.Date, UpdatedAt: r.UpdatedAt}
	if len(r.Tasks) > 0 {
		if err := json.Unmarshal(r.Tasks, &log.Tasks); err != nil {
			return domain.RawDayLog{}, fmt.Errorf("decode tasks of %s: %w", r.Date, err)
		}
	}
	return log, nil
}

func (r *PostgresDayLogRepository) GetRange(ctx context.Context, start, end domain.Date, userID string) ([]domain.RawDayLog, error) {
	rows := []dayLogRow{}

	query := `
		SELECT user_id, log_date, tasks, updated_at FROM day_logs
		WHERE user_id = $1
		  AND log_date >= $2
		  AND log_date <= $3`

	if err := r.db.SelectContext(ctx, &rows, query, userID, start, end); err != nil {
		return nil, err
	}
	return toDayLogs(rows)
}

func (r *PostgresDayLogRepository) GetRangeForUsers(ctx context.Context, start, end domain.Date, userIDs []string) (map[string][]domain.RawDayLog, error) {
	rows := []dayLogRow{}

	query := `
		SELECT user_id, log_date, tasks, updated_at FROM day_logs
		WHERE log_date >= $1
		  AND log_date <= $2
		  AND user_id = ANY($3)`

	if err := r.db.SelectContext(ctx, &rows, query, start, end, pq.Array(userIDs)); err != nil {
		return nil, err
	}

	out := make(map[string][]domain.RawDayLog, len(userIDs))
	for _, id := range userIDs {
		out[id] = []domain.RawDayLog{}
	}
	for _, row := range rows {
		log, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[row.UserID] = append(out[row.UserID], log)
	}
	return out, nil
}

func (r *PostgresDayLogRepository) GetDay(ctx context.Context, date domain.Date, userID string) (*domain.RawDayLog, error) {
	var row dayLogRow
	query := `SELECT user_id, log_date, tasks, updated_at FROM day_logs WHERE user_id = $1 AND log_date = $2`

	err := r.db.GetContext(ctx, &row, query, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	log, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *PostgresDayLogRepository) SaveDay(ctx context.Context, log *domain.RawDayLog) error {
	tasks, err := json.Marshal(log.Tasks)
	if err != nil {
		return err
	}
	if log.UpdatedAt.IsZero() {
		log.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO day_logs (user_id, log_date, tasks, updated_at)
		VALUES (:user_id, :log_date, :tasks, :updated_at)
		ON CONFLICT (user_id, log_date) DO UPDATE
		SET tasks = EXCLUDED.tasks,
		    updated_at = EXCLUDED.updated_at`

	_, err = r.db.NamedExecContext(ctx, query, dayLogRow{
		UserID:    log.UserID,
		Date:      log.Date,
		Tasks:     tasks,
		UpdatedAt: log.UpdatedAt,
	})
	return err
}

func toDayLogs(rows []dayLogRow) ([]domain.RawDayLog, error) {
	logs := make([]domain.RawDayLog, 0, len(rows))
	for _, row := range rows {
		log, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}
