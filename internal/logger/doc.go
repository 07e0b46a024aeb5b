// Package logger wraps zap with a global sugared logger and context helpers.
//
// Commands attach a named logger (and per-check fields such as check_id) to
// the context; every component logs through the logger found in the context.
// Output goes to stderr so command results printed to stdout stay parseable.
package logger
