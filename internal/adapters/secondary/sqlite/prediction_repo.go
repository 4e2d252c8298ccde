// Package sqlite is a single-file prediction catalog for local use.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		filename    TEXT NOT NULL,
		upload_time TEXT NOT NULL,
		file_path   TEXT NOT NULL,
		result      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS predictions_owner_time_idx
		ON predictions (owner_id, upload_time DESC);
`

// PredictionRepo opens the database file for every call and closes it before
// returning.
type PredictionRepo struct {
	dsn string
	now func() time.Time
}

func NewPredictionCatalog(path string) (*PredictionRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	return &PredictionRepo{
		dsn: path + "?_busy_timeout=5000&_journal_mode=WAL",
		now: time.Now,
	}, nil
}

var _ ports.PredictionCatalog = (*PredictionRepo)(nil)

func (r *PredictionRepo) acquire(ctx context.Context) (*sql.DB, func(), error) {
	db, err := sql.Open("sqlite3", r.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open: %v", domain.ErrCatalogUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%w: ping: %v", domain.ErrCatalogUnavailable, err)
	}
	return db, func() { _ = db.Close() }, nil
}

func (r *PredictionRepo) Migrate(ctx context.Context) error {
	db, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate predictions table: %w", err)
	}
	return nil
}

func (r *PredictionRepo) Ping(ctx context.Context) error {
	_, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

func (r *PredictionRepo) Record(ctx context.Context, ownerID, filename, locationKey string, result []byte) (uuid.UUID, error) {
	db, release, err := r.acquire(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	id := uuid.New()
	query := `
		INSERT INTO predictions (id, owner_id, filename, upload_time, file_path, result)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	uploaded := r.now().UTC().Format(timeLayout)
	if _, err := db.ExecContext(ctx, query, id.String(), ownerID, filename, uploaded, locationKey, string(result)); err != nil {
		return uuid.Nil, fmt.Errorf("%w: insert prediction: %v", domain.ErrCatalogUnavailable, err)
	}
	return id, nil
}

func (r *PredictionRepo) ListByOwner(ctx context.Context, filter ports.RunListFilter) ([]*domain.PredictionSummary, int, error) {
	db, release, err := r.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions WHERE owner_id = ?`, filter.OwnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count predictions: %v", domain.ErrCatalogUnavailable, err)
	}

	query := `
		SELECT id, owner_id, filename, upload_time, file_path
		FROM predictions
		WHERE owner_id = ?
		ORDER BY upload_time DESC, rowid DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, filter.OwnerID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list predictions: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var items []*domain.PredictionSummary
	for rows.Next() {
		var id, uploaded string
		s := &domain.PredictionSummary{}
		if err := rows.Scan(&id, &s.OwnerID, &s.Filename, &uploaded, &s.FilePath); err != nil {
			return nil, 0, fmt.Errorf("scan prediction: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, 0, fmt.Errorf("parse prediction id %q: %w", id, err)
		}
		if s.UploadTime, err = time.Parse(timeLayout, uploaded); err != nil {
			return nil, 0, fmt.Errorf("parse upload time %q: %w", uploaded, err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterate predictions: %v", domain.ErrCatalogUnavailable, err)
	}
	return items, total, nil
}

func (r *PredictionRepo) Fetch(ctx context.Context, runID uuid.UUID) (*domain.PredictionRecord, error) {
	db, release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT owner_id, filename, upload_time, file_path, result
		FROM predictions
		WHERE id = ?
	`
	rec := &domain.PredictionRecord{ID: runID}
	var uploaded, result string
	err = db.QueryRowContext(ctx, query, runID.String()).Scan(&rec.OwnerID, &rec.Filename, &uploaded, &rec.FilePath, &result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("%w: get prediction by id: %v", domain.ErrCatalogUnavailable, err)
	}
	if rec.UploadTime, err = time.Parse(timeLayout, uploaded); err != nil {
		return nil, fmt.Errorf("parse upload time %q: %w", uploaded, err)
	}
	rec.Result = []byte(result)
	return rec, nil
}
