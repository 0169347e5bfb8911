package ledger

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/catalog-feed/internal/database"
)

// newTestPostgres connects to FEED_TEST_POSTGRES_URL and migrates a fresh
// schema that is dropped when the test ends.
func newTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("FEED_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("FEED_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(admin.Close)

	schema := fmt.Sprintf("ledger_test_%d", time.Now().UnixNano())
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect to schema: %v", err)
	}
	t.Cleanup(db.Close)

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestPostgres_StabilizeWaitsForInFlightAppend(t *testing.T) {
	db := newTestPostgres(t)
	l := NewPostgres(db, nil)
	ctx := context.Background()

	// An append that has drawn its id but not committed yet.
	slow, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer slow.Rollback(ctx)
	if _, err := slow.Exec(ctx, `SELECT pg_advisory_xact_lock_shared($1)`, stabilizeLockKey); err != nil {
		t.Fatalf("shared lock: %v", err)
	}
	var slowID int64
	if err := slow.QueryRow(ctx, appendSQL, int64(100)).Scan(&slowID); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A later append commits first.
	fastID, err := l.Append(ctx, 200)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if fastID <= slowID {
		t.Fatalf("ids %d, %d not increasing", slowID, fastID)
	}
	maxID, err := l.CurrentMaxID(ctx)
	if err != nil || maxID != fastID {
		t.Fatalf("CurrentMaxID = %d, %v; want %d", maxID, err, fastID)
	}

	done := make(chan error, 1)
	go func() {
		_, err := l.Stabilize(ctx, 0, maxID)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("Stabilize returned before the in-flight append committed: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := slow.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stabilize: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stabilize did not finish after commit")
	}

	r, err := l.RecordsInRange(ctx, 0, maxID, 0, 10)
	if err != nil {
		t.Fatalf("RecordsInRange: %v", err)
	}
	if got := r.ItemIDs(); !reflect.DeepEqual(got, []int64{100, 200}) {
		t.Errorf("window items = %v, want [100 200]", got)
	}
}

func TestPostgres_AppendBatchAndRange(t *testing.T) {
	db := newTestPostgres(t)
	l := NewPostgres(db, nil)
	ctx := context.Background()

	if err := l.AppendBatch(ctx, []int64{5, 6, 5, 7}); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	maxID, err := l.CurrentMaxID(ctx)
	if err != nil {
		t.Fatalf("CurrentMaxID: %v", err)
	}
	if _, err := l.Stabilize(ctx, 0, maxID); err != nil {
		t.Fatalf("Stabilize: %v", err)
	}

	r, err := l.RecordsInRange(ctx, 0, maxID, 0, 10)
	if err != nil {
		t.Fatalf("RecordsInRange: %v", err)
	}
	if got := r.ItemIDs(); !reflect.DeepEqual(got, []int64{6, 5, 7}) || r.Total != 3 {
		t.Errorf("window = %v (total %d), want [6 5 7] (total 3)", got, r.Total)
	}

	r, err = l.RecordsInRange(ctx, 0, maxID, -1, 10)
	if err != nil || len(r.Records) != 0 || r.Total != 3 {
		t.Errorf("negative offset = %+v, %v; want empty page, total 3", r, err)
	}
}
