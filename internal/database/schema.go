package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates every table the feed server uses. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS product_delta (
		product_delta_id BIGSERIAL PRIMARY KEY,
		item_id          BIGINT      NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS product_delta_item_idx ON product_delta (item_id, product_delta_id)`,

	`CREATE TABLE IF NOT EXISTS store (
		store_id         BIGINT PRIMARY KEY,
		code             TEXT   NOT NULL UNIQUE,
		website_id       BIGINT NOT NULL DEFAULT 0,
		base_url         TEXT   NOT NULL DEFAULT '',
		media_base_url   TEXT   NOT NULL DEFAULT '',
		base_currency    TEXT   NOT NULL,
		current_currency TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_item (
		item_id BIGINT PRIMARY KEY,
		type    TEXT NOT NULL DEFAULT 'simple',
		sku     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_item_attribute (
		item_id  BIGINT NOT NULL,
		store_id BIGINT NOT NULL,
		code     TEXT   NOT NULL,
		value    TEXT,
		PRIMARY KEY (item_id, store_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_item (
		item_id     BIGINT PRIMARY KEY,
		qty         NUMERIC(12,4) NOT NULL DEFAULT 0,
		is_in_stock BOOLEAN       NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS category (
		category_id BIGINT PRIMARY KEY,
		path        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS category_item (
		item_id     BIGINT NOT NULL,
		category_id BIGINT NOT NULL,
		position    INT    NOT NULL DEFAULT 0,
		PRIMARY KEY (item_id, category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS item_relation (
		parent_id BIGINT NOT NULL,
		child_id  BIGINT NOT NULL,
		PRIMARY KEY (parent_id, child_id)
	)`,
	`CREATE TABLE IF NOT EXISTS price_override (
		item_id           BIGINT NOT NULL,
		store_id          BIGINT NOT NULL,
		customer_group_id BIGINT NOT NULL,
		final_price       NUMERIC(20,6),
		price             NUMERIC(20,6),
		PRIMARY KEY (item_id, store_id, customer_group_id)
	)`,

	`CREATE TABLE IF NOT EXISTS currency_rate (
		currency_from TEXT NOT NULL,
		currency_to   TEXT NOT NULL,
		rate          NUMERIC(24,12) NOT NULL,
		PRIMARY KEY (currency_from, currency_to)
	)`,
	`CREATE TABLE IF NOT EXISTS core_config (
		path     TEXT   NOT NULL,
		scope_id BIGINT NOT NULL DEFAULT 0,
		value    TEXT,
		PRIMARY KEY (path, scope_id)
	)`,
}

// Migrate applies Schema in one transaction.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for i, stmt := range Schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
