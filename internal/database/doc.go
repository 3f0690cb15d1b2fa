// Package database provides SQLite-based storage for apkscan.
//
// The Repository stores:
//   - loaded APK records, deduplicated by SHA-256
//   - extracted manifest components, one table per component kind with
//     columns generated from the attribute schema
//   - meta-data records and uses-permission declarations
//   - secret findings, obfuscation reports and complete scan runs
//
// A component and its meta-data rows are written in one transaction, so a
// component is either stored with all of its meta-data or not at all.
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file in the XDG data directory.
package database
