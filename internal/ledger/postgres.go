package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/catalog-feed/internal/model"
)

// stabilizeLockKey serializes Stabilize calls across server instances and
// orders them against in-flight appends.
const stabilizeLockKey int64 = 0x66656564

const (
	appendSQL = `INSERT INTO product_delta (item_id) VALUES ($1) RETURNING product_delta_id`

	maxIDSQL = `SELECT COALESCE(MAX(product_delta_id), 0) FROM product_delta`

	lastIssuedSQL = `SELECT COALESCE(pg_sequence_last_value('product_delta_product_delta_id_seq'::regclass), 0)`

	pruneSQL = `DELETE FROM product_delta WHERE product_delta_id <= $1`

	// Both sides of the join are <= $1, so records above the window are untouched.
	dedupSQL = `
		DELETE FROM product_delta d
		USING product_delta k
		WHERE d.item_id = k.item_id
		  AND d.product_delta_id < k.product_delta_id
		  AND k.product_delta_id <= $1`

	countSQL = `
		SELECT COUNT(DISTINCT item_id)
		FROM product_delta
		WHERE product_delta_id > $1 AND product_delta_id <= $2`

	rangeSQL = `
		SELECT id, item_id, created_at FROM (
			SELECT DISTINCT ON (item_id) product_delta_id AS id, item_id, created_at
			FROM product_delta
			WHERE product_delta_id > $1 AND product_delta_id <= $2
			ORDER BY item_id, product_delta_id
		) w
		ORDER BY id
		OFFSET $3 LIMIT $4`
)

// Postgres is a Ledger backed by the product_delta table.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a ledger on an existing pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Append records that an item changed.
func (p *Postgres) Append(ctx context.Context, itemID int64) (int64, error) {
	var id int64
	err := p.appendTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, appendSQL, itemID).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("append delta: %w", err)
	}
	return id, nil
}

// AppendBatch inserts one record per item id using pgx.Batch.
func (p *Postgres) AppendBatch(ctx context.Context, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range itemIDs {
		batch.Queue(`INSERT INTO product_delta (item_id) VALUES ($1)`, id)
	}

	err := p.appendTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("append delta batch: %w", err)
	}
	return nil
}

// appendTx runs fn holding the stabilize lock in shared mode, taken before
// any id is drawn from the sequence. Stabilize takes the same lock
// exclusively, so every id at or below a window's max_id is committed or
// rolled back before the window is pruned or read.
func (p *Postgres) appendTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock_shared($1)`, stabilizeLockKey); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		return fn(tx)
	})
}

// CurrentMaxID returns the highest existing delta id.
func (p *Postgres) CurrentMaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := p.db.QueryRow(ctx, maxIDSQL).Scan(&id); err != nil {
		return 0, fmt.Errorf("query max delta id: %w", err)
	}
	return id, nil
}

// LastIssuedID reads the delta id sequence.
func (p *Postgres) LastIssuedID(ctx context.Context) (int64, error) {
	var id int64
	if err := p.db.QueryRow(ctx, lastIssuedSQL).Scan(&id); err != nil {
		return 0, fmt.Errorf("query delta sequence: %w", err)
	}
	return id, nil
}

// PruneBelow deletes all records with id <= sinceID.
func (p *Postgres) PruneBelow(ctx context.Context, sinceID int64) (int64, error) {
	tag, err := p.db.Exec(ctx, pruneSQL, sinceID)
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %w", ErrStabilize, err)
	}
	return tag.RowsAffected(), nil
}

// DedupUpTo keeps the newest record per item among records with id <= maxID.
func (p *Postgres) DedupUpTo(ctx context.Context, maxID int64) (int64, error) {
	tag, err := p.db.Exec(ctx, dedupSQL, maxID)
	if err != nil {
		return 0, fmt.Errorf("%w: dedup: %w", ErrStabilize, err)
	}
	return tag.RowsAffected(), nil
}

// Stabilize prunes and deduplicates in one transaction holding an advisory lock.
func (p *Postgres) Stabilize(ctx context.Context, sinceID, maxID int64) (StabilizeResult, error) {
	var res StabilizeResult

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return res, fmt.Errorf("%w: begin: %w", ErrStabilize, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, stabilizeLockKey); err != nil {
		return res, fmt.Errorf("%w: lock: %w", ErrStabilize, err)
	}

	tag, err := tx.Exec(ctx, pruneSQL, sinceID)
	if err != nil {
		return res, fmt.Errorf("%w: prune: %w", ErrStabilize, err)
	}
	res.Pruned = tag.RowsAffected()

	tag, err = tx.Exec(ctx, dedupSQL, maxID)
	if err != nil {
		return res, fmt.Errorf("%w: dedup: %w", ErrStabilize, err)
	}
	res.Deduped = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return StabilizeResult{}, fmt.Errorf("%w: commit: %w", ErrStabilize, err)
	}

	p.logger.Debug("ledger stabilized",
		"since_id", sinceID,
		"max_id", maxID,
		"pruned", res.Pruned,
		"deduped", res.Deduped,
	)
	return res, nil
}

// RecordsInRange reads one page and the window total from a single snapshot.
func (p *Postgres) RecordsInRange(ctx context.Context, sinceID, maxID int64, offset, limit int) (Range, error) {
	var out Range

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return out, fmt.Errorf("begin range read: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, countSQL, sinceID, maxID).Scan(&out.Total); err != nil {
		return out, fmt.Errorf("count window: %w", err)
	}
	if out.Total == 0 || offset < 0 || int64(offset) >= out.Total || limit <= 0 {
		return out, nil
	}

	rows, err := tx.Query(ctx, rangeSQL, sinceID, maxID, offset, limit)
	if err != nil {
		return out, fmt.Errorf("query window: %w", err)
	}
	out.Records, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DeltaRecord, error) {
		var r model.DeltaRecord
		err := row.Scan(&r.ID, &r.ItemID, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return out, fmt.Errorf("scan window: %w", err)
	}

	return out, tx.Commit(ctx)
}
