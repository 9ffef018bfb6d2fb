// Package source discovers and parses allocation plan definition files.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/allot/internal/model"
)

// ErrUnsupportedFormat is returned for files whose extension is not a known
// plan encoding.
var ErrUnsupportedFormat = errors.New("unsupported plan format")

// FormatFromPath maps a file extension to a plan format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// ParseFile reads and validates a plan definition. A plan without a name is
// named after its file.
func ParseFile(path string) (model.Plan, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return model.Plan{}, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // plan path is chosen by the local user
	if err != nil {
		return model.Plan{}, fmt.Errorf("reading plan: %w", err)
	}

	plan, err := Parse(data, format)
	if err != nil {
		return model.Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	plan.Path = path
	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return plan, nil
}

// Parse decodes a plan document and validates its tree. Unknown keys are
// rejected so that typos in field names do not silently zero a value.
func Parse(data []byte, format Format) (model.Plan, error) {
	var raw RawPlan

	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &raw)
		if err != nil {
			return model.Plan{}, fmt.Errorf("parsing toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return model.Plan{}, fmt.Errorf("parsing toml: unknown key %q", undecoded[0].String())
		}

	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return model.Plan{}, fmt.Errorf("parsing json: %w", err)
		}

	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return model.Plan{}, fmt.Errorf("parsing yaml: %w", err)
		}

	default:
		return model.Plan{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	plan := raw.toModel()
	if err := Validate(plan.Nodes); err != nil {
		return model.Plan{}, fmt.Errorf("invalid plan: %w", err)
	}
	return plan, nil
}

// Encode writes a plan in the given format.
func Encode(w io.Writer, p model.Plan, format Format) error {
	raw := FromModel(p)
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(raw)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(raw); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
