// Package config holds the construction-time settings of a silhouette report run.
//
// Settings come from three layers, later layers winning: built-in defaults,
// an optional YAML file, and command-line flags applied by the caller.
// There is no dynamic reconfiguration; a Config is read once and validated
// before the batch starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is matched by every validation failure returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Edge detection backends.
const (
	EdgeBackendNative = "native"
	EdgeBackendOpenCV = "opencv"
)

// Segmentation backends.
const (
	SegmenterHTTP    = "http"
	SegmenterCommand = "command"
)

// Config is the full set of parameters for one batch run.
type Config struct {
	InputDir        string `yaml:"input_dir"`
	LowThreshold    int    `yaml:"low_threshold"`
	HighThreshold   int    `yaml:"high_threshold"`
	SmoothingKernel int    `yaml:"smoothing_kernel"`
	EdgeBackend     string `yaml:"edge_backend"`
	OutputPDF       string `yaml:"output_pdf"`
	OutputPNGDir    string `yaml:"output_png_dir"`
	Workers         int    `yaml:"workers"`

	Figure       Figure       `yaml:"figure"`
	Marker       Marker       `yaml:"marker"`
	Saturation   Saturation   `yaml:"saturation"`
	Segmentation Segmentation `yaml:"segmentation"`
	Log          Log          `yaml:"log"`
}

// Figure sizes the composite canvas. Width and Height are in pixels; DPI maps
// them to the physical page size of the PDF document.
type Figure struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	DPI    int `yaml:"dpi"`
}

// Marker describes the centroid marker drawn on the photo panels.
type Marker struct {
	Radius int    `yaml:"radius"`
	Color  string `yaml:"color"` // "#RRGGBB" or "#RRGGBBAA"
}

// Saturation is the colour adjustment applied before segmentation.
type Saturation struct {
	Increase bool     `yaml:"increase"`
	Decrease []string `yaml:"decrease"` // channel tags: "G", "B"
}

// Segmentation selects and configures the background removal oracle.
type Segmentation struct {
	Backend string        `yaml:"backend"`
	URL     string        `yaml:"url"`
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// Log configures the zerolog output.
type Log struct {
	Level string `yaml:"level"`
	Human bool   `yaml:"human"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		LowThreshold:    50,
		HighThreshold:   150,
		SmoothingKernel: 1,
		EdgeBackend:     EdgeBackendNative,
		OutputPDF:       "processed_images.pdf",
		OutputPNGDir:    "processed_images",
		Workers:         1,
		Figure: Figure{
			Width:  2000,
			Height: 1000,
			DPI:    100,
		},
		Marker: Marker{
			Radius: 5,
			Color:  "#FF0000",
		},
		Saturation: Saturation{
			Increase: true,
			Decrease: []string{"G", "B"},
		},
		Segmentation: Segmentation{
			Backend: SegmenterHTTP,
			URL:     "http://127.0.0.1:7000",
			Command: "rembg",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input directory is required", ErrInvalid)
	}
	if c.LowThreshold < 0 || c.LowThreshold >= c.HighThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= low < high, got low=%d high=%d",
			ErrInvalid, c.LowThreshold, c.HighThreshold)
	}
	if c.SmoothingKernel < 1 || c.SmoothingKernel%2 == 0 {
		return fmt.Errorf("%w: smoothing kernel must be a positive odd number, got %d", ErrInvalid, c.SmoothingKernel)
	}
	switch c.EdgeBackend {
	case EdgeBackendNative, EdgeBackendOpenCV:
	default:
		return fmt.Errorf("%w: unknown edge backend %q", ErrInvalid, c.EdgeBackend)
	}
	if c.OutputPDF == "" || c.OutputPNGDir == "" {
		return fmt.Errorf("%w: output document and raster directory are required", ErrInvalid)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if c.Figure.Width <= 0 || c.Figure.Height <= 0 || c.Figure.DPI <= 0 {
		return fmt.Errorf("%w: figure size and dpi must be positive", ErrInvalid)
	}
	if c.Marker.Radius < 0 {
		return fmt.Errorf("%w: marker radius must not be negative", ErrInvalid)
	}
	if _, err := ParseHexColor(c.Marker.Color); err != nil {
		return fmt.Errorf("%w: marker color: %v", ErrInvalid, err)
	}
	for _, tag := range c.Saturation.Decrease {
		switch strings.ToUpper(tag) {
		case "G", "B":
		default:
			return fmt.Errorf("%w: unknown saturation channel %q (want G or B)", ErrInvalid, tag)
		}
	}
	switch c.Segmentation.Backend {
	case SegmenterHTTP:
		if c.Segmentation.URL == "" {
			return fmt.Errorf("%w: segmentation url is required for the http backend", ErrInvalid)
		}
	case SegmenterCommand:
		if c.Segmentation.Command == "" {
			return fmt.Errorf("%w: segmentation command is required for the command backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown segmentation backend %q", ErrInvalid, c.Segmentation.Backend)
	}
	if c.Segmentation.Timeout < 0 {
		return fmt.Errorf("%w: segmentation timeout must not be negative", ErrInvalid)
	}
	return nil
}

// RGBA is an 8-bit colour parsed from a hex string.
type RGBA struct {
	R, G, B, A uint8
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func ParseHexColor(hex string) (RGBA, error) {
	if len(hex) == 0 {
		return RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return RGBA{R: r, G: g, B: b, A: a}, nil
}
