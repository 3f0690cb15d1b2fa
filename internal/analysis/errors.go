package analysis

import "errors"

// ErrFileUnreadable marks a file that could not be read during a tree walk.
// Such files are skipped and logged; the scan continues.
var ErrFileUnreadable = errors.New("file unreadable")
