// Package authtest provides a role-select Gateway for tests that need a signed-in
// user without a credential document.
package authtest

import (
	"context"
	"strings"

	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/usecase/auth"
)

// Fixture logs in any known role name without checking the password
type Fixture struct {
	// ChangePasswordErr is returned from ChangePassword when set
	ChangePasswordErr error

	Changed []string
}

var _ auth.Gateway = (*Fixture)(nil)

// Users maps role names to the identities Fixture hands out
var Users = map[model.Role]*model.User{
	model.RoleAdmin:  model.AdminUser(),
	model.RoleAnchor: {ID: "user_anchor_01", Name: "Anchor", Role: model.RoleAnchor},
}

func (f *Fixture) Authenticate(ctx context.Context, username, _ string) (*model.User, error) {
	for role, user := range Users {
		if strings.EqualFold(string(role), username) {
			u := *user
			return &u, nil
		}
	}
	return nil, model.NewError(model.KindUnauthorized, "Invalid username or password.")
}

func (f *Fixture) ChangePassword(ctx context.Context, _, newPassword string) error {
	if f.ChangePasswordErr != nil {
		return f.ChangePasswordErr
	}
	f.Changed = append(f.Changed, newPassword)
	return nil
}
