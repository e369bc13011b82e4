// Package table provides a single-table document store abstraction:
// equality lookup by key expression, idempotent upsert, and delete by
// composite key. Backends exist for DynamoDB (the primary deployment
// target), PostgreSQL, and an in-memory map.
package table

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is a stored record. Numeric values read back from a backend may be
// decoded as float64; use ItemInt64 when a number is expected.
type Item = map[string]any

// Timestamp fields stamped by Put when Settings.AddTimestamps is set.
const (
	FieldCreateTime = "createTime"
	FieldUpdateTime = "updateTime"
)

// Settings describes one logical table.
type Settings struct {
	// Name is the backing table name (DynamoDB).
	Name string
	// IDFields lists fields that are auto-assigned a random identifier on
	// Put when absent. The first entry is the partition key.
	IDFields []string
	// AddTimestamps enables createTime/updateTime stamping on Put.
	AddTimestamps bool
}

// PartitionKey returns the field holding the partition key.
func (s Settings) PartitionKey() string {
	if len(s.IDFields) == 0 {
		return ""
	}
	return s.IDFields[0]
}

// Table is the abstract store consumed by the identity core.
//
// Query performs an equality lookup ("email = :email" with values keyed by
// placeholder) and returns an empty slice, not an error, when nothing
// matches. Put upserts the item, applying the id/timestamp defaults, and
// returns the stored item. Delete removes the record addressed by the
// composite key and reports failures as common.KindDeleteFailed.
type Table interface {
	Query(ctx context.Context, keyConditionExpression string, values map[string]any) ([]Item, error)
	Put(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, key Item) error
}

// nowMillis is a seam for tests.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// applyWriteDefaults mutates item per the write rules: absent or empty id
// fields receive a random identifier, and if timestamps are enabled a record
// that already carries createTime is treated as an update (updateTime is
// stamped) while a record without one is treated as a creation (createTime
// is stamped).
func (s Settings) applyWriteDefaults(item Item) Item {
	for _, field := range s.IDFields {
		if !hasValue(item, field) {
			item[field] = uuid.NewString()
		}
	}
	if s.AddTimestamps {
		if hasValue(item, FieldCreateTime) {
			item[FieldUpdateTime] = nowMillis()
		} else {
			item[FieldCreateTime] = nowMillis()
		}
	}
	return item
}

func hasValue(item Item, field string) bool {
	v, ok := item[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

// parseKeyCondition splits an equality key expression of the form
// "field = :placeholder" used by the non-DynamoDB backends.
func parseKeyCondition(expr string) (field, placeholder string, err error) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unsupported key condition %q", expr)
	}
	field = strings.TrimSpace(parts[0])
	placeholder = strings.TrimSpace(parts[1])
	if field == "" || !strings.HasPrefix(placeholder, ":") {
		return "", "", fmt.Errorf("unsupported key condition %q", expr)
	}
	return field, placeholder, nil
}

// ItemInt64 reads a numeric field regardless of how the backend decoded it.
func ItemInt64(item Item, field string) (int64, bool) {
	switch v := item[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// ItemString reads a string field, returning "" when absent or not a string.
func ItemString(item Item, field string) string {
	s, _ := item[field].(string)
	return s
}

// CloneItem returns a shallow copy of item.
func CloneItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
