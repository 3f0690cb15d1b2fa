// Package session keeps the set of APKs the analyst selected between CLI
// invocations. A Session is loaded by the CLI and passed explicitly to the
// commands that use it; no other package reads it.
package session
