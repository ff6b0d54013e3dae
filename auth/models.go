package auth

import "codecourt/store"

// RegisterRequest carries the fields needed to create a new User. Role
// assignment happens separately (make-defendant-user, or a seed script for
// operator/judge/executioner accounts) — Register alone never grants
// privileged roles.
type RegisterRequest struct {
	Username string
	Name     string
	Password string
	MiscData []byte
	Roles    []store.Role
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult bundles the token and domain user returned after a
// successful login.
type LoginResult struct {
	Token string
	User  store.User
}
