// Package pipeline runs the scan of one APK as a sequence of steps and
// scans a batch of APKs one after another.
//
// A scan extracts and stores the manifest, decompiles the package, runs the
// obfuscation and secret analyzers over the source tree, derives findings
// and records the run. Each step receives the accumulated report. A failing
// step is recorded in the report; steps that depend on a source tree are
// skipped when decompilation did not produce one.
//
// Batches are strictly sequential. A failure on one APK is recorded in its
// report and never stops the remaining APKs.
package pipeline
