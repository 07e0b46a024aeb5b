package packager

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// DefaultChecksumFunction is used to calculate artifact hashes.
const DefaultChecksumFunction crypto.Hash = crypto.SHA512

var errHashUnavailable = errors.New("hash function unavailable")

// FileChecksum returns the base64 checksum and size of a file.
func FileChecksum(path string) (string, int64, error) {
	if !DefaultChecksumFunction.Available() {
		return "", 0, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", 0, err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := DefaultChecksumFunction.New()

	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("calculate checksum of %s: %w", path, err)
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), size, nil
}
