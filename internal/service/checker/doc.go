// Package checker asks the provider whether a newer release is published.
//
// Run performs a single check and prints a YAML report; Watch repeats the
// check on a cron schedule until the context is canceled, reusing one
// provider (and so one authenticated storage session) for every tick.
package checker
