package decompiler

import (
	"errors"
	"fmt"
)

// Decompiler errors.
var (
	// ErrToolFailure is returned when the decompiler cannot be started, exits
	// with a non-zero status or produces no output.
	ErrToolFailure = errors.New("decompiler failed")

	// ErrTimedOut is returned when the decompiler exceeds its timeout. It also
	// matches ErrToolFailure.
	ErrTimedOut = fmt.Errorf("%w: timed out", ErrToolFailure)
)
