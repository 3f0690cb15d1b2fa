package database

import "errors"

// ErrPersistence is returned when a repository write fails. The caller keeps
// the in-memory data and may retry.
var ErrPersistence = errors.New("persistence failure")
