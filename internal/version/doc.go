// Package version exposes build metadata for update-provider.
//
// Version, Commit and BuildTime are injected with -ldflags and keep local
// defaults otherwise. The same version goes into the storage User-Agent.
package version
