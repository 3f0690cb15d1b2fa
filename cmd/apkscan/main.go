// Package main provides the entry point for the apkscan CLI.
//
// apkscan triages Android packages. It extracts the components declared in
// the manifest, measures identifier obfuscation in the decompiled sources
// and searches them for hard-coded credentials.
//
// Usage:
//
//	apkscan load -f app.apk
//	apkscan select app.apk
//	apkscan scan --all
//
// See --help for all available options.
package main

// main is the entry point for apkscan.
func main() {
	Execute()
}
