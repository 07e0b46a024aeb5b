package provider

import "errors"

var (
	// ErrChannelFileNotFound is returned when the channel manifest does not exist.
	// Callers usually treat it as "no update published for this channel".
	ErrChannelFileNotFound = errors.New("channel file not found")
	// ErrMalformedFileReference is returned for file entries that cannot be
	// joined against the base URL.
	ErrMalformedFileReference = errors.New("malformed file reference")
	// ErrNoFilesProvided is returned when a manifest references no files at all.
	ErrNoFilesProvided = errors.New("no files provided")
	// ErrFilesystemWrite is returned when a downloaded artifact cannot be stored.
	ErrFilesystemWrite = errors.New("filesystem write failed")
	// ErrChecksumMismatch is returned when downloaded bytes do not match the expected SHA-512.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrDestinationBusy is returned when a running process uses the destination executable.
	ErrDestinationBusy = errors.New("destination is used by a running process")

	errDestinationNotRegular = errors.New("destination is not a regular file")
	errBaseURLNotAbsolute    = errors.New("base url must be absolute")
	errContainerRequired     = errors.New("container must be provided")
)
