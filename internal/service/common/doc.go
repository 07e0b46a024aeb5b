// Package common holds helpers shared by several services.
//
// It turns loaded settings into a ready provider (picking the storage backend
// and reading credentials from the environment) and finishes command runs by
// flushing metrics.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
