package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest decodes a YAML or JSON document from path into v. A path of
// "-" reads standard input.
func LoadRequest(path string, v any) error {
	if path == "-" {
		return ReadRequest(os.Stdin, v)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// ParseRequest decodes data by the extension of filename; unknown
// extensions try YAML, then JSON.
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
		return nil
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		return nil
	}
	return decodeEither(data, v)
}

// ReadRequest decodes a YAML or JSON document read from r.
func ReadRequest(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return decodeEither(data, v)
}

func decodeEither(data []byte, v any) error {
	yerr := yaml.Unmarshal(data, v)
	if yerr == nil {
		return nil
	}
	if jerr := json.Unmarshal(data, v); jerr != nil {
		return fmt.Errorf("failed to parse input (tried YAML and JSON): %w", errors.Join(yerr, jerr))
	}
	return nil
}
