package users

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/auth"
	"authkeeper/internal/server/table"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tbl := table.NewMemoryTable(table.Settings{Name: "Auth", IDFields: []string{"email"}, AddTimestamps: true})
	log := testLogger()
	return NewService(NewRepository(NewStore(tbl, log), testConfig(), log), log)
}

func authBody(email, username, password string) *AuthBody {
	return &AuthBody{User: &Credentials{Email: email, Username: username, Password: password}}
}

func assertValidation(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))
	assert.Equal(t, []string{message}, errorMessages(t, err))
}

func TestServiceRegister_Success(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "a@a.com", resp.User.Email)
	assert.Equal(t, "abc123", resp.User.Username)
	require.NotNil(t, resp.User.Token)
}

func TestServiceRegister_MissingWrapper(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), &AuthBody{})
	assertValidation(t, err, MissingUserInfoMessage)

	_, err = svc.Register(context.Background(), nil)
	assertValidation(t, err, MissingUserInfoMessage)
}

func TestServiceRegister_MissingFields(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), authBody("a@a.com", "", "1234"))
	assertValidation(t, err, MissingRegistrationFieldMessage)

	_, err = svc.Register(context.Background(), authBody("a@a.com", "abc123", ""))
	assertValidation(t, err, MissingRegistrationFieldMessage)

	_, err = svc.Register(context.Background(), authBody("", "abc123", "1234"))
	assertValidation(t, err, MissingRegistrationFieldMessage)
}

func TestServiceRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), authBody("a@a.com", "other", "5678"))
	assertValidation(t, err, EmailAlreadyRegisteredMessage)
}

func TestServiceLogin_MissingFields(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), &AuthBody{})
	assertValidation(t, err, MissingUserInfoMessage)

	_, err = svc.Login(context.Background(), authBody("a@a.com", "", ""))
	assertValidation(t, err, MissingLoginFieldMessage)
}

func TestServiceLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), authBody("a@a.com", "", "4321"))
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
	assert.Equal(t, []string{InvalidCredentialsMessage}, errorMessages(t, err))
}

func TestServiceGetUserByToken_MissingHeader(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetUserByToken(context.Background(), "")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
	assert.Equal(t, []string{NotLoggedInMessage}, errorMessages(t, err))
}

func TestServiceGetUserByToken_StripsTokenPrefix(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	got, err := svc.GetUserByToken(context.Background(), "Token "+*resp.User.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@a.com", got.User.Email)
}

func TestServiceGetUserByToken_ExpiredToken(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	expired, err := auth.IssueToken(auth.Claims{Email: "a@a.com", Username: "abc123"},
		[]byte("test-secret"), -1*time.Second)
	require.NoError(t, err)

	_, err = svc.GetUserByToken(context.Background(), "Token "+expired)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
}

func TestServiceUpdate_RequiresAuthentication(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), "", &UpdateBody{User: map[string]any{FieldBio: "x"}})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
}

func TestServiceUpdate_MissingWrapper(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "Token "+*resp.User.Token, &UpdateBody{})
	assertValidation(t, err, MissingUserInfoMessage)
}

func TestServiceUpdate_EmailChangeChecksAvailability(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), authBody("b@b.com", "other", "5678"))
	require.NoError(t, err)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "Token "+*resp.User.Token,
		&UpdateBody{User: map[string]any{FieldEmail: "b@b.com"}})
	assertValidation(t, err, EmailRegisteredToOtherMessage)
}

func TestServiceUpdate_EmailChangeMovesRecord(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "Token "+*resp.User.Token,
		&UpdateBody{User: map[string]any{FieldEmail: "c@c.com"}})
	require.NoError(t, err)
	assert.Equal(t, "c@c.com", updated.User.Email)

	_, err = svc.GetUserByToken(context.Background(), "Token "+*updated.User.Token)
	require.NoError(t, err)
}

func TestServiceUpdate_PatchCannotCarryPrivateFields(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "Token "+*resp.User.Token,
		&UpdateBody{User: map[string]any{FieldPasswordHash: "forged", FieldBio: "x"}})
	require.NoError(t, err)

	// The stored hash is untouched: the original password still logs in.
	_, err = svc.Login(context.Background(), authBody("a@a.com", "", "1234"))
	require.NoError(t, err)
}

func TestServiceUpdate_PatchCannotPersistToken(t *testing.T) {
	tbl := table.NewMemoryTable(table.Settings{Name: "Auth", IDFields: []string{"email"}, AddTimestamps: true})
	log := testLogger()
	svc := NewService(NewRepository(NewStore(tbl, log), testConfig(), log), log)

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "Token "+*resp.User.Token,
		&UpdateBody{User: map[string]any{FieldToken: "forged", FieldBio: "x"}})
	require.NoError(t, err)

	items, err := tbl.Query(context.Background(), "email = :email", map[string]any{":email": "a@a.com"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, table.ItemString(items[0], FieldToken), "a bearer token must never be persisted")
}

func TestServiceLogging_MasksPassword(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	tbl := table.NewMemoryTable(table.Settings{Name: "Auth", IDFields: []string{"email"}, AddTimestamps: true})
	svc := NewService(NewRepository(NewStore(tbl, log), testConfig(), log), log)

	const password = "s3cr3t-pw"

	resp, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", password))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), authBody("a@a.com", "", password))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "Token "+*resp.User.Token,
		&UpdateBody{User: map[string]any{FieldPassword: password, FieldBio: "x"}})
	require.NoError(t, err)

	out := buf.String()
	assert.NotEmpty(t, out, "operations must emit call-site logs")
	assert.Contains(t, out, "[secret]")
	assert.NotContains(t, out, password, "the plaintext password must never be logged")
}

func TestServiceDel_ReturnsSuccessLiteral(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), authBody("a@a.com", "abc123", "1234"))
	require.NoError(t, err)

	result, err := svc.Del(context.Background(), "a@a.com")
	require.NoError(t, err)
	assert.Equal(t, DeleteSuccessResult, result)

	_, err = svc.Login(context.Background(), authBody("a@a.com", "", "1234"))
	require.Error(t, err)
}
