package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/auth"
	"authkeeper/internal/server/config"
	"authkeeper/internal/server/table"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	return &config.Config{SecretKey: "test-secret", TokenValidityDuration: time.Hour}
}

func newTestRepository(t *testing.T) (*Repository, *table.MemoryTable) {
	t.Helper()
	tbl := table.NewMemoryTable(table.Settings{Name: "Auth", IDFields: []string{"email"}, AddTimestamps: true})
	log := testLogger()
	return NewRepository(NewStore(tbl, log), testConfig(), log), tbl
}

func registered(t *testing.T, r *Repository) *Profile {
	t.Helper()
	profile, err := r.Register(context.Background(), &Credentials{
		Email:    "a@a.com",
		Username: "abc123",
		Password: "1234",
	})
	require.NoError(t, err)
	return profile
}

func errorMessages(t *testing.T, err error) []string {
	t.Helper()
	var e *common.Error
	require.ErrorAs(t, err, &e)
	return e.Messages
}

func TestRegister_ReturnsRedactedProfileWithToken(t *testing.T) {
	repo, _ := newTestRepository(t)

	profile := registered(t, repo)

	assert.Equal(t, "a@a.com", profile.Email)
	assert.Equal(t, "abc123", profile.Username)
	assert.Nil(t, profile.Bio)
	assert.Nil(t, profile.Image)
	require.NotNil(t, profile.Token)
	assert.Positive(t, profile.CreateTime)
}

func TestRegister_StoredRecordHasHashAndSaltButNoPlaintext(t *testing.T) {
	repo, tbl := newTestRepository(t)

	registered(t, repo)

	items, err := tbl.Query(context.Background(), "email = :email", map[string]any{":email": "a@a.com"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	rec := items[0]
	assert.NotEmpty(t, table.ItemString(rec, FieldPasswordHash))
	assert.NotEmpty(t, table.ItemString(rec, FieldPasswordSalt))
	assert.NotContains(t, rec, FieldPassword, "plaintext must never reach the table")
}

func TestLogin_RoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	registered(t, repo)

	profile, err := repo.Login(context.Background(), &Credentials{Email: "a@a.com", Password: "1234"})
	require.NoError(t, err)

	assert.Equal(t, "a@a.com", profile.Email)
	assert.Equal(t, "abc123", profile.Username)
	require.NotNil(t, profile.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo, _ := newTestRepository(t)
	registered(t, repo)

	_, err := repo.Login(context.Background(), &Credentials{Email: "a@a.com", Password: "4321"})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
	assert.Equal(t, []string{InvalidCredentialsMessage}, errorMessages(t, err))
}

func TestLogin_UnknownEmailUsesSameMessage(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Login(context.Background(), &Credentials{Email: "nobody@a.com", Password: "1234"})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
	assert.Equal(t, []string{InvalidCredentialsMessage}, errorMessages(t, err))
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Get(context.Background(), "missing@a.com")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestGetByToken_RefetchesCurrentState(t *testing.T) {
	repo, _ := newTestRepository(t)
	profile := registered(t, repo)

	// Change the stored username after the token was minted.
	_, err := repo.Update(context.Background(), profile, Record{FieldUsername: "renamed"})
	require.NoError(t, err)

	got, err := repo.GetByToken(context.Background(), *profile.Token)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username, "claims must not be trusted for current profile state")
	require.NotNil(t, got.Token)

	// The re-minted token verifies against the same secret.
	_, err = auth.VerifyToken(*got.Token, []byte("test-secret"))
	require.NoError(t, err)
}

func TestGetByToken_DeletedUserIsNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)
	profile := registered(t, repo)

	require.NoError(t, repo.Del(context.Background(), "a@a.com"))

	// The token is still genuine; the record behind it is gone.
	_, err := repo.GetByToken(context.Background(), *profile.Token)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestUpdate_PatchWinsAbsentFieldsKeepValue(t *testing.T) {
	repo, _ := newTestRepository(t)
	profile := registered(t, repo)

	bio := "about me"
	updated, err := repo.Update(context.Background(), profile, Record{FieldBio: bio})
	require.NoError(t, err)

	require.NotNil(t, updated.Bio)
	assert.Equal(t, bio, *updated.Bio)
	assert.Equal(t, "abc123", updated.Username, "fields absent in the patch retain their prior value")
	assert.Equal(t, profile.CreateTime, updated.CreateTime, "createTime is set once")
	assert.Positive(t, updated.UpdateTime)
}

func TestUpdate_EmailChangeMovesRecord(t *testing.T) {
	repo, _ := newTestRepository(t)
	profile := registered(t, repo)

	updated, err := repo.Update(context.Background(), profile, Record{FieldEmail: "b@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "b@b.com", updated.Email)

	_, err = repo.Get(context.Background(), "a@a.com")
	assert.True(t, common.IsKind(err, common.KindNotFound), "the old record is gone")

	moved, err := repo.Get(context.Background(), "b@b.com")
	require.NoError(t, err)
	assert.Equal(t, "abc123", moved.Username)
}

func TestUpdate_LoginStillWorksAfterEmailChange(t *testing.T) {
	repo, _ := newTestRepository(t)
	profile := registered(t, repo)

	_, err := repo.Update(context.Background(), profile, Record{FieldEmail: "b@b.com"})
	require.NoError(t, err)

	_, err = repo.Login(context.Background(), &Credentials{Email: "b@b.com", Password: "1234"})
	require.NoError(t, err, "hash and salt move with the record")
}

func TestDel_RemovesRecord(t *testing.T) {
	repo, _ := newTestRepository(t)
	registered(t, repo)

	require.NoError(t, repo.Del(context.Background(), "a@a.com"))

	_, err := repo.Get(context.Background(), "a@a.com")
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestDel_UnknownEmail(t *testing.T) {
	repo, _ := newTestRepository(t)

	err := repo.Del(context.Background(), "missing@a.com")
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

// failingDeleteTable wraps a Table and fails every delete.
type failingDeleteTable struct {
	table.Table
}

func (f *failingDeleteTable) Delete(ctx context.Context, key table.Item) error {
	return common.DeleteFailedError(errors.New("boom"))
}

func TestDel_StoreFailureIsSuppressed(t *testing.T) {
	tbl := table.NewMemoryTable(table.Settings{Name: "Auth", IDFields: []string{"email"}, AddTimestamps: true})
	log := testLogger()
	repo := NewRepository(NewStore(&failingDeleteTable{Table: tbl}, log), testConfig(), log)

	registered(t, repo)

	err := repo.Del(context.Background(), "a@a.com")
	assert.NoError(t, err, "a failed store delete must not fail the caller")
}
