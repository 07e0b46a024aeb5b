// Package manifest parses and renders channel manifests (<channel>.yml).
package manifest
