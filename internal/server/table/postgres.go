package table

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/migrations"
)

// PostgresTable implements Table on a single auth_items relation: the
// partition key value in a text column, createTime alongside it for
// composite deletes, and the full record as JSONB. The schema is managed by
// goose; Settings.Name only applies to the DynamoDB backend.
type PostgresTable struct {
	db       *sql.DB
	settings Settings
	log      logging.Logger
}

func NewPostgresTable(db *sql.DB, settings Settings, log logging.Logger) *PostgresTable {
	return &PostgresTable{db: db, settings: settings, log: log.With("table", "auth_items")}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (t *PostgresTable) Query(ctx context.Context, keyConditionExpression string, values map[string]any) ([]Item, error) {
	field, placeholder, err := parseKeyCondition(keyConditionExpression)
	if err != nil {
		return nil, err
	}
	value, ok := values[placeholder]
	if !ok {
		return nil, fmt.Errorf("no value bound for %s", placeholder)
	}

	query := `SELECT item FROM auth_items WHERE item->>$1 = $2`
	args := []any{field, fmt.Sprint(value)}
	if field == t.settings.PartitionKey() {
		query = `SELECT item FROM auth_items WHERE key_value = $1`
		args = []any{fmt.Sprint(value)}
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying table: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, 1)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshalling item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *PostgresTable) Put(ctx context.Context, item Item) (Item, error) {
	stored := t.settings.applyWriteDefaults(item)

	keyValue := fmt.Sprint(stored[t.settings.PartitionKey()])
	createTime, _ := ItemInt64(stored, FieldCreateTime)

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, common.PutFailedError(err)
	}

	query := `
		INSERT INTO auth_items (key_value, create_time, item)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_value)
		DO UPDATE SET create_time = EXCLUDED.create_time, item = EXCLUDED.item`

	if _, err := t.db.ExecContext(ctx, query, keyValue, createTime, raw); err != nil {
		return nil, common.PutFailedError(err)
	}
	return stored, nil
}

func (t *PostgresTable) Delete(ctx context.Context, key Item) error {
	keyValue := fmt.Sprint(key[t.settings.PartitionKey()])

	if createTime, ok := ItemInt64(key, FieldCreateTime); ok {
		_, err := t.db.ExecContext(ctx,
			`DELETE FROM auth_items WHERE key_value = $1 AND create_time = $2`, keyValue, createTime)
		if err != nil {
			return common.DeleteFailedError(err)
		}
		return nil
	}

	if _, err := t.db.ExecContext(ctx, `DELETE FROM auth_items WHERE key_value = $1`, keyValue); err != nil {
		return common.DeleteFailedError(err)
	}
	return nil
}
