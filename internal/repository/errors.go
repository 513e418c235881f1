// Package repository implements raw-SQL persistence for users, access
// windows, documents and the sessions journal. Sentinel errors defined
// here let handlers map failures onto precise HTTP statuses without
// inspecting driver error strings themselves. Row absence is reported
// as sql.ErrNoRows throughout, which handlers translate to 404.
package repository

import "errors"

// ErrEmailExists is returned when creating a user whose (normalized)
// email is already taken. Handlers translate it into HTTP 400.
var ErrEmailExists = errors.New("email already exists")
