// Package model defines the data structures shared across apkscan.
//
// The main types are:
//   - AttrValue: a tri-state manifest attribute scalar
//   - Component and MetaData: typed manifest components and their annotations
//   - AttrSpec: the per-kind attribute schema used for extraction and storage
//   - APK: a loaded package record
//   - ObfuscationReport, SecretFinding, Finding: analyzer output
//   - ScanReport: everything produced by one scan of one APK
package model
