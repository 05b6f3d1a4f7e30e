package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/repository"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
)

const (
	msgInvalidLogin    = "Invalid username or password."
	msgPasswordTooWeak = "New password must be at least 4 characters long."
	msgWrongPassword   = "Your current password is not correct."
)

// Gateway verifies callers and manages the shared admin password
type Gateway interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

// UseCase is the password based Gateway backed by the credential document
type UseCase struct {
	store repository.CredentialStore
}

var _ Gateway = (*UseCase)(nil)

// New creates a new auth UseCase instance
func New(store repository.CredentialStore) *UseCase {
	return &UseCase{store: store}
}

// Authenticate returns the admin identity when username is "admin" (any case) and
// password matches the stored credential
func (u *UseCase) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	cred, err := u.store.GetCredential(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load credential")
	}

	if !strings.EqualFold(username, model.AdminUsername) || !cred.Verify(password) {
		logging.From(ctx).Warn("login rejected", "username", username)
		return nil, model.NewError(model.KindUnauthorized, msgInvalidLogin)
	}

	user := model.AdminUser()
	logging.From(ctx).Info("login succeeded", "user_id", user.ID)
	return user, nil
}

// ChangePassword replaces the admin password after checking the current one
func (u *UseCase) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < model.MinPasswordLength {
		return model.NewError(model.KindInvalidInput, msgPasswordTooWeak)
	}

	cred, err := u.store.GetCredential(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to load credential")
	}

	if !cred.Verify(oldPassword) {
		return model.NewError(model.KindForbidden, msgWrongPassword)
	}

	next, err := model.NewCredential(newPassword)
	if err != nil {
		return err
	}

	if err := u.store.PutCredential(ctx, next); err != nil {
		return goerr.Wrap(err, "failed to save credential")
	}

	logging.From(ctx).Info("password changed")
	return nil
}
