package model_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/newsdesk/pkg/model"
)

func TestCredentialVerify(t *testing.T) {
	cred, err := model.NewCredential("newpass1")
	gt.NoError(t, err)
	gt.S(t, cred.PasswordHash).NotContains("newpass1")
	gt.Equal(t, cred.Password, "")

	gt.True(t, cred.Verify("newpass1"))
	gt.False(t, cred.Verify("admin"))
	gt.False(t, cred.Verify(""))
}

func TestCredentialVerifyPlaintext(t *testing.T) {
	cred := &model.Credential{Password: "admin"}
	gt.True(t, cred.Verify("admin"))
	gt.False(t, cred.Verify("Admin"))
	gt.False(t, cred.Verify(""))

	var empty *model.Credential
	gt.False(t, empty.Verify("admin"))
	gt.False(t, (&model.Credential{}).Verify(""))
}

func TestCredentialLongPassword(t *testing.T) {
	long := strings.Repeat("p", 80)
	cred, err := model.NewCredential(long)
	gt.NoError(t, err)
	gt.True(t, cred.Verify(long))

	// Passwords sharing the first 72 bytes are still distinct
	gt.False(t, cred.Verify(strings.Repeat("p", 72)))
	gt.False(t, cred.Verify(strings.Repeat("p", 79)+"q"))
}
