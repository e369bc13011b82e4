package users

import (
	"context"
	"strings"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/table"
)

// Fixed caller-facing messages.
const (
	MissingUserInfoMessage          = "Missing user information"
	MissingRegistrationFieldMessage = "Email, password, or username was not provided"
	MissingLoginFieldMessage        = "Email or password was not provided"
	EmailAlreadyRegisteredMessage   = "The provided email address is already registered"
	EmailRegisteredToOtherMessage   = "The email address is registered to another user"
	NotLoggedInMessage              = "The user is not logged in."

	// DeleteSuccessResult is the literal returned by Del, by contract.
	DeleteSuccessResult = "Success"

	// secretMask replaces secret values in call-site logs. Plaintext
	// passwords never reach a log record.
	secretMask = "[secret]"

	// tokenPrefix is stripped, case-sensitively, from the Authorization
	// header value before verification.
	tokenPrefix = "Token "
)

// Service validates input shape, enforces the business rules around
// duplicate emails and required authentication, and maps repository
// outcomes to API-facing results.
type Service struct {
	repo *Repository
	log  logging.Logger
}

func NewService(repo *Repository, log logging.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Register creates a new user. The existence pre-check and the insert are
// two separate store operations; concurrent registrations for the same
// email can race, and the last write wins.
func (s *Service) Register(ctx context.Context, body *AuthBody) (*ProfileBody, error) {
	if body == nil || body.User == nil {
		return nil, common.ValidationError(MissingUserInfoMessage)
	}
	u := body.User
	s.log.Info(ctx, "register", "user", loggableCredentials(u))
	if u.Email == "" || u.Password == "" || u.Username == "" {
		return nil, common.ValidationError(MissingRegistrationFieldMessage)
	}

	if err := s.checkEmailFree(ctx, u.Email, EmailAlreadyRegisteredMessage); err != nil {
		return nil, err
	}

	profile, err := s.repo.Register(ctx, u)
	if err != nil {
		return nil, err
	}
	return &ProfileBody{User: profile}, nil
}

// Login authenticates the credentials and returns the profile with a token.
func (s *Service) Login(ctx context.Context, body *AuthBody) (*ProfileBody, error) {
	if body == nil || body.User == nil {
		return nil, common.ValidationError(MissingUserInfoMessage)
	}
	u := body.User
	s.log.Info(ctx, "login", "user", loggableCredentials(u))
	if u.Email == "" || u.Password == "" {
		return nil, common.ValidationError(MissingLoginFieldMessage)
	}

	profile, err := s.repo.Login(ctx, u)
	if err != nil {
		return nil, err
	}
	return &ProfileBody{User: profile}, nil
}

// GetUserByToken resolves the current user from an Authorization header
// value of the form "Token <jwt>".
func (s *Service) GetUserByToken(ctx context.Context, header string) (*ProfileBody, error) {
	s.log.Debug(ctx, "get user by token")
	if header == "" {
		return nil, common.UnauthorizedError(NotLoggedInMessage)
	}
	tokenString := strings.TrimPrefix(header, tokenPrefix)

	profile, err := s.repo.GetByToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &ProfileBody{User: profile}, nil
}

// Update patches the authenticated user's profile. When the patch changes
// the email, the new email must not belong to another user.
func (s *Service) Update(ctx context.Context, header string, body *UpdateBody) (*ProfileBody, error) {
	current, err := s.GetUserByToken(ctx, header)
	if err != nil {
		return nil, err
	}

	if body == nil || body.User == nil {
		return nil, common.ValidationError(MissingUserInfoMessage)
	}
	s.log.Info(ctx, "update", "email", current.User.Email, "patch", loggablePatch(body.User))

	// A patch can never smuggle in private fields, and a stale bearer token
	// must not be persisted with the record.
	patch := Redact(Record(body.User))
	delete(patch, FieldToken)

	if newEmail := table.ItemString(patch, FieldEmail); newEmail != "" && newEmail != current.User.Email {
		if err := s.checkEmailFree(ctx, newEmail, EmailRegisteredToOtherMessage); err != nil {
			return nil, err
		}
	}

	profile, err := s.repo.Update(ctx, current.User, patch)
	if err != nil {
		return nil, err
	}
	return &ProfileBody{User: profile}, nil
}

// Del removes the user stored under email and returns "Success".
func (s *Service) Del(ctx context.Context, email string) (string, error) {
	s.log.Info(ctx, "delete user", "email", email)
	if err := s.repo.Del(ctx, email); err != nil {
		return "", err
	}
	return DeleteSuccessResult, nil
}

// loggableCredentials returns a view of the credentials safe for logging:
// the password value is replaced by secretMask.
func loggableCredentials(u *Credentials) map[string]any {
	m := map[string]any{FieldEmail: u.Email}
	if u.Username != "" {
		m[FieldUsername] = u.Username
	}
	if u.Password != "" {
		m[FieldPassword] = secretMask
	}
	return m
}

// loggablePatch copies the patch with every private field's value masked.
func loggablePatch(patch map[string]any) map[string]any {
	m := make(map[string]any, len(patch))
	for k, v := range patch {
		m[k] = v
	}
	for _, f := range PrivateFields {
		if _, ok := m[f]; ok {
			m[f] = secretMask
		}
	}
	return m
}

// checkEmailFree treats NotFound as "safe to proceed"; any other error kind
// is a real failure and is re-propagated, not mistaken for a missing user.
func (s *Service) checkEmailFree(ctx context.Context, email, takenMessage string) error {
	_, err := s.repo.Get(ctx, email)
	if err == nil {
		return common.ValidationError(takenMessage)
	}
	if common.IsKind(err, common.KindNotFound) {
		return nil
	}
	return err
}
