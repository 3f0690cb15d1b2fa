// Package analysis runs the static heuristics of apkscan.
//
// Two analyzers work over a decompiled source tree and return their own
// result types: ObfuscationAnalyzer (name-shape ratio and mapping artifacts)
// and SecretScanner (data-driven credential signatures). Both are read-only
// and scan files in parallel; results do not depend on file order.
//
// The remaining analyzers implement CheckAnalyzer and turn manifest data,
// obfuscation results and bundled image metadata into model.Finding values.
// Analyzer coordinates them.
package analysis
