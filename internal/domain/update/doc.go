// Package update contains the update metadata types shared by the manifest
// parser, the provider and the commands.
//
// Info mirrors the channel manifest (version plus file entries); FileInfo is
// one referenced artifact; ResolvedFileInfo pairs it with an absolute URL.
package update
