// Package config defines the provider settings and helpers to load, validate
// and save them in YAML format.
//
// Secrets never live in the file: the storage username and password are read
// from the OS_USERNAME and OS_PASSWORD environment variables.
package config
