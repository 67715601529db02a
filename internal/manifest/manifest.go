// Package manifest loads batch files: an ordered list of generation records
// in YAML, TOML or JSON. Fields a record leaves out inherit the run defaults.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/reel/internal/lifecycle"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrNoRecords is returned for a manifest with an empty records list.
var ErrNoRecords = errors.New("manifest has no records")

type document struct {
	Records []lifecycle.GenerationRequest `json:"records" yaml:"records" toml:"records"`
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q (want .yaml, .yml, .toml or .json)", ext)
	}
}

// Load reads the manifest at path.
func Load(path string, defaults lifecycle.GenerationRequest) ([]lifecycle.GenerationRequest, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, format, defaults)
}

// Parse decodes a manifest strictly, rejecting unknown keys, and applies
// defaults to every record in order. Field values are not checked here; a bad
// record fails on its own when the run validates it.
func Parse(data []byte, format Format, defaults lifecycle.GenerationRequest) ([]lifecycle.GenerationRequest, error) {
	var doc document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	if len(doc.Records) == 0 {
		return nil, ErrNoRecords
	}
	out := make([]lifecycle.GenerationRequest, 0, len(doc.Records))
	for _, rec := range doc.Records {
		out = append(out, withDefaults(rec, defaults))
	}
	return out, nil
}

func withDefaults(rec, defaults lifecycle.GenerationRequest) lifecycle.GenerationRequest {
	rec.Model = strings.TrimSpace(rec.Model)
	if rec.Model == "" {
		rec.Model = defaults.Model
	}
	if rec.AudioURL == "" {
		rec.AudioURL = defaults.AudioURL
	}
	if rec.ImageURL == "" {
		rec.ImageURL = defaults.ImageURL
	}
	if rec.Resolution == "" {
		rec.Resolution = defaults.Resolution
	}
	if rec.AspectRatio == "" {
		rec.AspectRatio = defaults.AspectRatio
	}
	return rec
}
