package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminUsername     = "admin"
	DefaultPassword   = "admin"
	MinPasswordLength = 4
)

// Credential is the singleton document holding the admin password. Password is only
// set on documents written by older deployments that stored it in plain text.
type Credential struct {
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// NewCredential hashes password into a new credential document
func NewCredential(password string) (*Credential, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hash password")
	}
	return &Credential{PasswordHash: string(hash)}, nil
}

// Verify reports whether password matches the stored one
func (c *Credential) Verify(password string) bool {
	if c == nil {
		return false
	}
	if c.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), prehash(password)) == nil
	}
	if c.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1
}

// prehash digests password so bcrypt never sees more than its 72 byte input limit
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
