// Package packager prepares the channel manifest for a release.
//
// It hashes the release artifacts (SHA-512, base64) found in a directory,
// records their sizes and writes <channel>.yml next to them. The resulting
// directory is uploaded as-is to the storage container that clients read.
package packager
