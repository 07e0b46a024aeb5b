// Package provider implements the update-check protocol against an object
// store: channel resolution, manifest fetch with a bounded retry policy for
// refused connections, artifact URL resolution and artifact download.
//
// Manifest fetches and artifact downloads share one authenticated session;
// only manifest fetches are retried.
package provider
