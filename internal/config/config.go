package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/bmharper/pdfocr"
)

// DefaultPath is read when no config file is given. It is optional.
const DefaultPath = "pdfocr.toml"

type Config struct {
	// Tesseract language code, eg "spa", "eng", "spa+eng"
	Lang string `toml:"lang"`
	// Directory for transcripts. Empty writes each transcript next to its PDF.
	OutputDir  string  `toml:"output_dir"`
	Straighten bool    `toml:"straighten"`
	MaxAngle   float64 `toml:"max_angle"`
	Verbose    bool    `toml:"verbose"`
	JSONLog    bool    `toml:"json_log"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Lang:     pdfocr.DefaultLanguage,
		MaxAngle: pdfocr.DefaultMaxAngle,
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// A missing file is only an error when path was given explicitly.
// The result is not validated, since command line flags may still override it.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	return cfg, applyEnv(&cfg)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PDFOCR_LANG"); v != "" {
		cfg.Lang = v
	}
	if v := os.Getenv("PDFOCR_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PDFOCR_STRAIGHTEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PDFOCR_STRAIGHTEN: %w", err)
		}
		cfg.Straighten = b
	}
	if v := os.Getenv("PDFOCR_MAX_ANGLE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PDFOCR_MAX_ANGLE: %w", err)
		}
		cfg.MaxAngle = f
	}
	return nil
}

func (c Config) Validate() error {
	if c.Lang == "" {
		return fmt.Errorf("lang must not be empty")
	}
	if c.Straighten && (c.MaxAngle <= 0 || c.MaxAngle > 45) {
		return fmt.Errorf("max_angle must be in (0, 45], got %v", c.MaxAngle)
	}
	return nil
}
