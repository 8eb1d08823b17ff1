package outbox

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"msgkit/internal/domain"
	"msgkit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "outbox.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func smsRequest(t *testing.T, text string) *model.Request {
	t.Helper()
	req, err := model.SMS("+15551112222", "+15553334444", "app-1", model.NewSms(text))
	require.NoError(t, err)
	return req
}

func TestEnqueue_StoresWirePayload(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	req := smsRequest(t, "hello")
	req.WithTag("order-1")
	rec, err := s.Enqueue(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.OutboxPending, rec.Status)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15551112222", got.To)
	assert.Equal(t, []string{"SMS"}, got.Channels)
	assert.Equal(t, "order-1", got.Tag)
	assert.Nil(t, got.PublishedAt)
	assert.JSONEq(t,
		`{"to":"+15551112222","channelList":[{"from":"+15553334444","applicationId":"app-1","channel":"SMS","content":{"text":"hello"}}],"tag":"order-1"}`,
		string(got.Payload))
}

func TestEnqueue_InvalidRequestNeverStored(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	req := model.NewRequest("+15551112222")
	_, err := s.Enqueue(ctx, req)
	require.Error(t, err)
	assert.Equal(t, domain.KindEmptyCollection, domain.KindOf(err))

	records, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEnqueue_KeepsChannelOrder(t *testing.T) {
	s := testStore(t)
	req, err := model.RBM("+15551112222", "+15553334444", "app-1", model.NewRbmText("rich"))
	require.NoError(t, err)
	require.NoError(t, req.WithSMS("+15553334444", "app-1", model.NewSms("plain")))

	rec, err := s.Enqueue(context.Background(), req)
	require.NoError(t, err)
	got, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"RBM", "SMS"}, got.Channels)
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_InsertionOrderAndStatusFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		rec, err := s.Enqueue(ctx, smsRequest(t, text))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	require.NoError(t, s.MarkPublished(ctx, ids[1], time.Now()))

	pending, err := s.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)

	published, err := s.List(ctx, domain.OutboxPublished, 10)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, ids[1], published[0].ID)
	require.NotNil(t, published[0].PublishedAt)

	all, err := s.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMarkPublished(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Enqueue(ctx, smsRequest(t, "hi"))
	require.NoError(t, err)

	require.NoError(t, s.MarkPublished(ctx, rec.ID, time.Now()))
	require.NoError(t, s.MarkPublished(ctx, rec.ID, time.Now()), "second mark is a no-op")

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxPublished, got.Status)

	assert.ErrorIs(t, s.MarkPublished(ctx, "missing", time.Now()), ErrNotFound)
}

func TestRecordFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Enqueue(ctx, smsRequest(t, "hi"))
	require.NoError(t, err)

	require.NoError(t, s.RecordFailure(ctx, rec.ID, "broker down"))
	require.NoError(t, s.RecordFailure(ctx, rec.ID, "still down"))

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "still down", got.LastError)
	assert.Equal(t, domain.OutboxPending, got.Status)

	assert.ErrorIs(t, s.RecordFailure(ctx, "missing", "x"), ErrNotFound)
}

func TestCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[domain.OutboxPending])

	a, err := s.Enqueue(ctx, smsRequest(t, "a"))
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, smsRequest(t, "b"))
	require.NoError(t, err)
	require.NoError(t, s.MarkPublished(ctx, a.ID, time.Now()))

	counts, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.OutboxPending])
	assert.Equal(t, 1, counts[domain.OutboxPublished])
}

func TestOpen_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	s, err := Open(path, testLogger())
	require.NoError(t, err)
	rec, err := s.Enqueue(context.Background(), smsRequest(t, "persist"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, testLogger())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(context.Background(), rec.ID)
	assert.NoError(t, err)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db, testLogger()))
	require.NoError(t, RunMigrations(db, testLogger()))

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestRunMigrations_ColumnAlreadyPresent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	// v1 applied, then attempts added by hand before v2 runs
	_, err = db.Exec(`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, description TEXT, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = db.Exec(migrations[0].SQL)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_version (version, description) VALUES (1, 'base')`)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE outbox ADD COLUMN attempts INTEGER DEFAULT 0`)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db, testLogger()))
	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestSnapshot(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Enqueue(ctx, smsRequest(t, "snap"))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, s.Snapshot(ctx, dest))

	copyStore, err := Open(dest, testLogger())
	require.NoError(t, err)
	defer copyStore.Close()

	got, err := copyStore.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Payload, got.Payload)

	assert.Error(t, s.Snapshot(ctx, dest), "existing destination")
}

func TestOpen_UsesWALAndBusyTimeout(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mode, err := s.JournalMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}
