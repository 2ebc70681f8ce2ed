package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadOptions reads a TighteningOptions document from path, starting from
// Default() and overlaying whatever the file specifies. The format
// (YAML or JSON) is inferred from the file extension, matching the
// teacher's convention of decoding its fixture format with goccy/go-yaml
// (a superset-compatible parser for plain JSON documents too).
func LoadOptions(path string) (TighteningOptions, error) {
	opts := Default()
	if path == "" {
		return opts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading options file %q: %w", path, err)
	}

	if err := decode(path, raw, &opts); err != nil {
		return opts, fmt.Errorf("decoding options file %q: %w", path, err)
	}
	return opts, nil
}

// LoadNamingOverrides reads a naming-override rule array from path (§4.A,
// §6.1).
func LoadNamingOverrides(path string) ([]NamingOverride, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading naming overrides file %q: %w", path, err)
	}

	var overrides []NamingOverride
	if err := decode(path, raw, &overrides); err != nil {
		return nil, fmt.Errorf("decoding naming overrides file %q: %w", path, err)
	}
	return overrides, nil
}

func decode(path string, raw []byte, out any) error {
	if strings.HasSuffix(path, ".json") {
		return json.Unmarshal(raw, out)
	}
	return yaml.Unmarshal(raw, out)
}
