// Package storage defines the authenticated object-storage transport used to
// fetch channel manifests and update artifacts.
//
// Backends translate their own failures into ErrObjectNotFound and
// ErrConnectionRefused so callers can decide what is retryable.
package storage
