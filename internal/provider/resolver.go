package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oshokin/swift-update-provider/internal/domain/update"
)

// ResolveFiles joins every file entry of info against base, keeping manifest
// order. Artifact URLs inherit the base query; no cache token is added.
func ResolveFiles(info *update.Info, base *url.URL) ([]update.ResolvedFileInfo, error) {
	files, ok := info.FileList()
	if !ok {
		return nil, ErrNoFilesProvided
	}

	result := make([]update.ResolvedFileInfo, 0, len(files))

	for i, file := range files {
		resolved, err := resolveReference(file.URL, base)
		if err != nil {
			return nil, fmt.Errorf("file #%d: %w", i, err)
		}

		result = append(result, update.ResolvedFileInfo{
			URL:  resolved,
			Info: file,
		})
	}

	return result, nil
}

// resolveReference joins one relative reference against base. References with
// their own scheme or host, or that leave the base path, are rejected.
func resolveReference(reference string, base *url.URL) (*url.URL, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrMalformedFileReference)
	}

	relative, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedFileReference, reference, err)
	}

	if relative.Scheme != "" || relative.Host != "" || relative.User != nil {
		return nil, fmt.Errorf("%w: %q is not relative", ErrMalformedFileReference, reference)
	}

	resolved := base.ResolveReference(relative)
	applyQuery(resolved, base, URLOptions{})

	if _, err = ObjectKey(base, resolved); err != nil {
		return nil, fmt.Errorf("%q: %w", reference, err)
	}

	return resolved, nil
}

// ObjectKey returns the storage key of target: its path relative to the base path.
func ObjectKey(base, target *url.URL) (string, error) {
	if target == nil {
		return "", fmt.Errorf("%w: missing url", ErrMalformedFileReference)
	}

	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrMalformedFileReference, target.Redacted(), base.Redacted())
	}

	key, ok := strings.CutPrefix(target.Path, base.Path)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s is outside %s", ErrMalformedFileReference, target.Redacted(), base.Redacted())
	}

	return key, nil
}
