// Package repository implements data access over the shared *sql.DB pool.
// This file defines sentinel errors reused across repositories so higher
// layers can distinguish failure scenarios without string matching.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the UNIQUE
// constraint on users.email.  Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a lookup by id or e-mail matches no
// row.  Handlers translate this into 404 (activation) or 401 (login,
// session checks) depending on context.
var ErrUserNotFound = errors.New("user not found")
