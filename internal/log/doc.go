// Package log builds apkscan's slog loggers. Every logger wraps its output
// handler in a SecureHandler so that scan logs can be shared without leaking
// what the scanner found.
//
// Keystore and signing passwords are masked by key. Secret scanner matches
// keep a four character prefix. Credentials quoted inside error messages,
// such as a key that failed attribute coercion, are replaced in place using
// a built-in pattern set plus the signature table of the running scan.
// Paths under the home directory are logged as ~/...
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose, log.WithPatterns(patterns...))
//	logger.Debug("secret found", "finding", finding) // finding.match is masked
package log
