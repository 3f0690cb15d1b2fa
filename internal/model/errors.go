package model

import "errors"

// ErrInputNotFound is returned when a package, directory or stored record
// referenced by the caller does not exist.
var ErrInputNotFound = errors.New("input not found")
