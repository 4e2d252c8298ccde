package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
)

const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id          UUID PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		filename    TEXT NOT NULL,
		upload_time TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		file_path   TEXT NOT NULL,
		result      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS predictions_owner_time_idx
		ON predictions (owner_id, upload_time DESC);
`

// PredictionRepo opens a dedicated connection for every call and closes it
// before returning.
type PredictionRepo struct {
	connCfg        *pgx.ConnConfig
	connectTimeout time.Duration
}

func NewPredictionCatalog(dsn string, connectTimeout time.Duration) (*PredictionRepo, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &PredictionRepo{connCfg: connCfg, connectTimeout: connectTimeout}, nil
}

var _ ports.PredictionCatalog = (*PredictionRepo)(nil)

func (r *PredictionRepo) acquire(ctx context.Context) (*pgx.Conn, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, r.connectTimeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(dialCtx, r.connCfg.Copy())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: connect: %v", domain.ErrCatalogUnavailable, err)
	}
	release := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}
	return conn, release, nil
}

func (r *PredictionRepo) Migrate(ctx context.Context) error {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate predictions table: %w", err)
	}
	return nil
}

func (r *PredictionRepo) Ping(ctx context.Context) error {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrCatalogUnavailable, err)
	}
	return nil
}

func (r *PredictionRepo) Record(ctx context.Context, ownerID, filename, locationKey string, result []byte) (uuid.UUID, error) {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	id := uuid.New()
	query := `
		INSERT INTO predictions (id, owner_id, filename, upload_time, file_path, result)
		VALUES ($1, $2, $3, clock_timestamp(), $4, $5)
	`
	if _, err := conn.Exec(ctx, query, id, ownerID, filename, locationKey, string(result)); err != nil {
		return uuid.Nil, fmt.Errorf("%w: insert prediction: %v", domain.ErrCatalogUnavailable, err)
	}
	return id, nil
}

func (r *PredictionRepo) ListByOwner(ctx context.Context, filter ports.RunListFilter) ([]*domain.PredictionSummary, int, error) {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM predictions WHERE owner_id = $1`, filter.OwnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count predictions: %v", domain.ErrCatalogUnavailable, err)
	}

	query := `
		SELECT id, owner_id, filename, upload_time, file_path
		FROM predictions
		WHERE owner_id = $1
		ORDER BY upload_time DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := conn.Query(ctx, query, filter.OwnerID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list predictions: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var items []*domain.PredictionSummary
	for rows.Next() {
		s := &domain.PredictionSummary{}
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Filename, &s.UploadTime, &s.FilePath); err != nil {
			return nil, 0, fmt.Errorf("scan prediction: %w", err)
		}
		s.UploadTime = s.UploadTime.UTC()
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterate predictions: %v", domain.ErrCatalogUnavailable, err)
	}
	return items, total, nil
}

func (r *PredictionRepo) Fetch(ctx context.Context, runID uuid.UUID) (*domain.PredictionRecord, error) {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT id, owner_id, filename, upload_time, file_path, result
		FROM predictions
		WHERE id = $1
	`
	rec := &domain.PredictionRecord{}
	var result string
	err = conn.QueryRow(ctx, query, runID).Scan(&rec.ID, &rec.OwnerID, &rec.Filename, &rec.UploadTime, &rec.FilePath, &result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("%w: get prediction by id: %v", domain.ErrCatalogUnavailable, err)
	}
	rec.UploadTime = rec.UploadTime.UTC()
	rec.Result = []byte(result)
	return rec, nil
}
