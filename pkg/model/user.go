package model

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleAnchor Role = "Anchor"
)

// User is the identity of an authenticated caller. It only lives for a session and is
// never written to storage.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// AdminUser returns the fixed identity granted to the shared admin credential
func AdminUser() *User {
	return &User{
		ID:   "user_admin_01",
		Name: "Admin",
		Role: RoleAdmin,
	}
}
