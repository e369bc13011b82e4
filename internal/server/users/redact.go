package users

// PrivateFields are never allowed to leave the repository boundary.
var PrivateFields = []string{FieldPassword, FieldPasswordHash, FieldPasswordSalt}

// Redact removes the given fields from rec in place and returns it; with no
// fields given it removes all PrivateFields. Callers must treat the return
// value as the only safe-to-expose copy. Redacting an already-clean record
// is a no-op, and a nil record stays nil.
//
// Registration passes FieldPassword explicitly to strip only the plaintext
// before the record is persisted, keeping hash and salt for storage.
func Redact(rec Record, fields ...string) Record {
	if rec == nil {
		return nil
	}
	if len(fields) == 0 {
		fields = PrivateFields
	}
	for _, f := range fields {
		delete(rec, f)
	}
	return rec
}
