package manifest

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/swift-update-provider/internal/domain/update"
)

// Extension is appended to a channel name to form its manifest filename.
const Extension = ".yml"

// ErrParse is returned when manifest bytes cannot be turned into update info.
var ErrParse = errors.New("invalid update info")

// Filename returns the manifest filename for a channel.
func Filename(channel string) string {
	return channel + Extension
}

// Parse decodes manifest bytes. filename and url only enrich error messages.
func Parse(data []byte, filename, url string) (*update.Info, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: cannot parse update info from %s (%s): empty document", ErrParse, filename, url)
	}

	var info update.Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: cannot parse update info from %s (%s): %w", ErrParse, filename, url, err)
	}

	if info.Version == "" {
		return nil, fmt.Errorf("%w: %s (%s) has no version", ErrParse, filename, url)
	}

	return &info, nil
}

// Marshal renders update info as a manifest document.
func Marshal(info *update.Info) ([]byte, error) {
	data, err := yaml.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal update info: %w", err)
	}

	return data, nil
}
