package users

import (
	"context"
	"time"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/auth"
	"authkeeper/internal/server/config"
	"authkeeper/internal/server/table"
)

// InvalidCredentialsMessage is deliberately the same for an unknown email
// and a wrong password, so a caller cannot tell which one failed.
const InvalidCredentialsMessage = "The username or password is invalid"

// Repository orchestrates the hasher, token primitives, redactor, and store
// adapter. It owns the user record exclusively: every record is redacted
// before it crosses this boundary.
type Repository struct {
	store         *Store
	secretKey     []byte
	tokenValidity time.Duration
	log           logging.Logger
}

func NewRepository(store *Store, cfg *config.Config, log logging.Logger) *Repository {
	return &Repository{
		store:         store,
		secretKey:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		log:           log,
	}
}

// Get fetches and redacts the profile stored under email.
func (r *Repository) Get(ctx context.Context, email string) (*Profile, error) {
	rec, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return recordToProfile(Redact(rec)), nil
}

// Login verifies the candidate password against the stored hash and salt
// and, on success, returns the redacted profile with a fresh token attached.
func (r *Repository) Login(ctx context.Context, creds *Credentials) (*Profile, error) {
	rec, err := r.store.FindByEmail(ctx, creds.Email)
	if err != nil {
		if common.IsKind(err, common.KindNotFound) {
			return nil, common.UnauthorizedError(InvalidCredentialsMessage)
		}
		return nil, err
	}

	salt := table.ItemString(rec, FieldPasswordSalt)
	hash := table.ItemString(rec, FieldPasswordHash)
	if !auth.CheckPassword(creds.Password, salt, hash) {
		return nil, common.UnauthorizedError(InvalidCredentialsMessage)
	}

	return r.attachToken(recordToProfile(Redact(rec)))
}

// Register salts and hashes the password, persists the record with the
// plaintext stripped, and returns the redacted profile with a token.
func (r *Repository) Register(ctx context.Context, creds *Credentials) (*Profile, error) {
	salt, err := auth.CreateSalt()
	if err != nil {
		return nil, err
	}
	hash := auth.HashPassword(creds.Password, salt)

	rec := Record{
		FieldEmail:        creds.Email,
		FieldUsername:     creds.Username,
		FieldPassword:     creds.Password,
		FieldPasswordHash: hash,
		FieldPasswordSalt: salt,
		FieldBio:          nil,
		FieldImage:        nil,
		FieldToken:        nil,
	}
	// The plaintext must not reach the table; hash and salt stay for storage.
	Redact(rec, FieldPassword)

	stored, err := r.store.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}

	return r.attachToken(recordToProfile(Redact(stored)))
}

// GetByToken verifies the token and re-reads the current record by the
// claims' email; claims are not trusted as the source of truth for profile
// state. Each verified read issues a fresh token with a renewed expiry
// window (sliding expiration). A valid token whose user has since been
// deleted surfaces the store's NotFound rather than Unauthorized: the
// credential is genuine, the record is gone.
func (r *Repository) GetByToken(ctx context.Context, tokenString string) (*Profile, error) {
	claims, err := auth.VerifyToken(tokenString, r.secretKey)
	if err != nil {
		return nil, err
	}

	rec, err := r.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}

	return r.attachToken(recordToProfile(Redact(rec)))
}

// Update shallow-merges the patch over the stored record (patch wins,
// absent fields keep their prior value) and persists the result. When the
// patch changes the email the record moves to a new partition key: the old
// record is deleted best-effort before the insert.
func (r *Repository) Update(ctx context.Context, current *Profile, patch Record) (*Profile, error) {
	rec, err := r.store.FindByEmail(ctx, current.Email)
	if err != nil {
		return nil, err
	}

	merged := table.CloneItem(rec)
	for k, v := range patch {
		merged[k] = v
	}

	if newEmail := table.ItemString(merged, FieldEmail); newEmail != current.Email {
		createTime, _ := table.ItemInt64(rec, table.FieldCreateTime)
		if err := r.store.Delete(ctx, current.Email, createTime); err != nil {
			r.log.Error(ctx, "failed to delete superseded record", "email", current.Email, "error", err)
		}
	}

	stored, err := r.store.Insert(ctx, merged)
	if err != nil {
		return nil, err
	}

	return r.attachToken(recordToProfile(Redact(stored)))
}

// Del removes the record stored under email. A failed store delete is
// logged and suppressed: if the preceding fetch succeeded the caller sees
// success.
func (r *Repository) Del(ctx context.Context, email string) error {
	rec, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	createTime, _ := table.ItemInt64(rec, table.FieldCreateTime)
	if err := r.store.Delete(ctx, email, createTime); err != nil {
		r.log.Error(ctx, "failed to delete record", "email", email, "error", err)
	}
	return nil
}

func (r *Repository) attachToken(p *Profile) (*Profile, error) {
	tokenString, err := auth.IssueToken(claimsFor(p), r.secretKey, r.tokenValidity)
	if err != nil {
		return nil, err
	}
	p.Token = &tokenString
	return p, nil
}
