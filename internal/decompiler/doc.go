// Package decompiler turns APK bytecode into a tree of readable source files
// by running an external decompiler (jadx by default).
//
// The decompiler is a blocking external process. Every invocation is bounded
// by a timeout; a run that exceeds it is killed and reported as ErrTimedOut.
// Any other failure is reported as ErrToolFailure together with the tail of
// the tool's stderr. Output of a failed run is removed, so callers only ever
// see complete trees.
package decompiler
