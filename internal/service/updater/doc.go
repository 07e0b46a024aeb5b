// Package updater downloads the artifacts of the latest release.
//
// It fetches the channel manifest through the provider, resolves every
// artifact it lists and downloads them concurrently into an output
// directory, mirroring their object keys. A marker file in the output
// directory keeps two runs from writing into the same place; a marker older
// than markerLifetime is treated as left over from a crashed run.
package updater
