// Package outbox persists serialized requests in SQLite until a relay
// publishes them.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"msgkit/internal/domain"
	"msgkit/internal/model"
	"msgkit/internal/wire"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("outbox record not found")

const defaultListLimit = 100

// Store implements domain.OutboxStore using SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.OutboxStore = (*Store)(nil)

// Open opens (creating if needed) the outbox database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("outbox migration failed: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Enqueue serializes req and stores it as a pending record. Requests that
// fail validation are never stored.
func (s *Store) Enqueue(ctx context.Context, req *model.Request) (*domain.OutboxRecord, error) {
	payload, err := wire.Encode(req)
	if err != nil {
		return nil, err
	}

	channels := make([]string, 0, req.ChannelList.Count())
	for _, ch := range req.Channels() {
		channels = append(channels, string(ch))
	}

	rec := domain.OutboxRecord{
		ID:        uuid.NewString(),
		To:        req.To,
		Channels:  channels,
		Tag:       req.Tag,
		Payload:   payload,
		Status:    domain.OutboxPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Debug("request enqueued", "id", rec.ID, "to", rec.To, "channels", rec.Channels)
	return &rec, nil
}

func (s *Store) Save(ctx context.Context, rec domain.OutboxRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = domain.OutboxPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, recipient, channels, tag, payload, status, attempts, last_error, created_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.To, strings.Join(rec.Channels, ","), rec.Tag, rec.Payload, string(rec.Status),
		rec.Attempts, rec.LastError, rec.CreatedAt, nullTime(rec.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("save outbox record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, recipient, channels, tag, payload, status, attempts, last_error, created_at, published_at FROM outbox`

func (s *Store) Get(ctx context.Context, id string) (*domain.OutboxRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns records in insertion order. An empty status lists every record.
func (s *Store) List(ctx context.Context, status domain.OutboxStatus, limit int) ([]domain.OutboxRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := selectColumns
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY rowid LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	var records []domain.OutboxRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Store) ListPending(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	return s.List(ctx, domain.OutboxPending, limit)
}

// MarkPublished flags a pending record as published. Marking an already
// published record is a no-op.
func (s *Store) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET status = ?, published_at = ?, last_error = '' WHERE id = ? AND status = ?`,
		string(domain.OutboxPublished), at.UTC(), id, string(domain.OutboxPending),
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RecordFailure(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`, reason, id,
	)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Counts returns the number of records per status.
func (s *Store) Counts(ctx context.Context) (map[domain.OutboxStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outbox: %w", err)
	}
	defer rows.Close()

	counts := map[domain.OutboxStatus]int{domain.OutboxPending: 0, domain.OutboxPublished: 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.OutboxStatus(status)] = n
	}
	return counts, rows.Err()
}

// JournalMode reports the SQLite journal mode in effect.
func (s *Store) JournalMode(ctx context.Context) (string, error) {
	var mode string
	if err := s.db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		return "", fmt.Errorf("read journal mode: %w", err)
	}
	return mode, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Snapshot writes a consistent copy of the database to dest, which must not exist.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("snapshot outbox: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.OutboxRecord, error) {
	var (
		rec         domain.OutboxRecord
		channels    string
		status      string
		publishedAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.To, &channels, &rec.Tag, &rec.Payload, &status,
		&rec.Attempts, &rec.LastError, &rec.CreatedAt, &publishedAt); err != nil {
		return nil, err
	}
	if channels != "" {
		rec.Channels = strings.Split(channels, ",")
	}
	rec.Status = domain.OutboxStatus(status)
	if publishedAt.Valid {
		t := publishedAt.Time
		rec.PublishedAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
