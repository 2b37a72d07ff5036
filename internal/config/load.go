package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

var errUnsupportedConfig = errors.New("unsupported config file extension")

// DecodeJSON decodes a trace configuration from JSON or JSONC on top of the
// defaults. An empty or null document yields the defaults.
func DecodeJSON(data []byte) (Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode trace config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeYAML decodes a trace configuration from YAML on top of the defaults.
func DecodeYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode trace config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a standalone trace configuration. The format follows the
// extension: .toml (a book.toml or a bare trace table), .yaml/.yml, .json
// or .jsonc.
func LoadFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".toml" {
		m, err := LoadBookToml(path)
		if err != nil {
			return Config{}, err
		}
		return m.Trace, nil
	}

	var decode func([]byte) (Config, error)
	switch ext {
	case ".yaml", ".yml":
		decode = DecodeYAML
	case ".json", ".jsonc":
		decode = DecodeJSON
	default:
		return Config{}, fmt.Errorf("%w: %s", errUnsupportedConfig, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// BookManifest is the part of a book.toml this tool reads.
type BookManifest struct {
	Title string
	// Src is the directory holding SUMMARY.md, relative to the book root.
	Src string
	// HasTrace reports whether a [preprocessor.trace] table was present.
	HasTrace bool
	Trace    Config
}

type bookToml struct {
	Book struct {
		Title string `toml:"title"`
		Src   string `toml:"src"`
	} `toml:"book"`
	Preprocessor struct {
		Trace toml.Primitive `toml:"trace"`
	} `toml:"preprocessor"`
}

// LoadBookToml reads an mdbook book.toml. The trace configuration comes from
// [preprocessor.trace]; a file without that table but with top-level trace
// keys is read as a bare trace table.
func LoadBookToml(path string) (*BookManifest, error) {
	var raw bookToml
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	m := &BookManifest{
		Title: raw.Book.Title,
		Src:   raw.Book.Src,
		Trace: Default(),
	}
	if m.Src == "" {
		m.Src = "src"
	}

	switch {
	case md.IsDefined("preprocessor", "trace"):
		m.HasTrace = true
		if err := md.PrimitiveDecode(raw.Preprocessor.Trace, &m.Trace); err != nil {
			return nil, fmt.Errorf("decode %s [preprocessor.trace]: %w", path, err)
		}
	case !md.IsDefined("book"):
		m.HasTrace = true
		if _, err := toml.DecodeFile(path, &m.Trace); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := m.Trace.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
