package users

import (
	"context"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/table"
)

// Store maps the domain operations onto the abstract table's primitives.
// It is the component that translates "query returned zero rows" into
// NotFound; the table itself reports an empty result as an empty slice.
type Store struct {
	table table.Table
	log   logging.Logger
}

func NewStore(t table.Table, log logging.Logger) *Store {
	return &Store{table: t, log: log}
}

// FindByEmail returns the single record stored under email, or NotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (Record, error) {
	s.log.Debug(ctx, "find by email", "email", email)
	items, err := s.table.Query(ctx, "email = :email", map[string]any{":email": email})
	if err != nil {
		return nil, common.InternalError(err)
	}
	if len(items) == 0 {
		return nil, common.NotFoundError(email)
	}
	return items[0], nil
}

// Insert upserts the record. The table stamps createTime on creation and
// updateTime on subsequent writes, and auto-assigns configured id fields.
func (s *Store) Insert(ctx context.Context, rec Record) (Record, error) {
	// Only the key is logged: the record carries the hash and salt.
	s.log.Debug(ctx, "put record", "email", table.ItemString(rec, FieldEmail))
	return s.table.Put(ctx, rec)
}

// Delete removes the record addressed by the (email, createTime) composite
// key. Failures surface as KindDeleteFailed; whether that is propagated is
// the repository's decision.
func (s *Store) Delete(ctx context.Context, email string, createTime int64) error {
	s.log.Debug(ctx, "delete record", "email", email, "createTime", createTime)
	return s.table.Delete(ctx, Record{
		FieldEmail:            email,
		table.FieldCreateTime: createTime,
	})
}
