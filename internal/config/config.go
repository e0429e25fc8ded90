// Package config handles reliefgen configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Faultbox/relief-forge/pkg/depthmap"
	"github.com/Faultbox/relief-forge/pkg/export"
	"github.com/Faultbox/relief-forge/pkg/material"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all reliefgen settings.
type Config struct {
	Relief  Relief        `yaml:"relief"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// Relief holds mesh generation settings.
type Relief struct {
	TargetDepthMm   float32 `yaml:"target_depth_mm"`
	BaseThicknessMm float32 `yaml:"base_thickness_mm"`
	// TargetWidthMm and TargetHeightMm are optional; nil follows the
	// image aspect ratio.
	TargetWidthMm  *float32 `yaml:"target_width_mm"`
	TargetHeightMm *float32 `yaml:"target_height_mm"`
	// MaxResolution caps the longer side of the depth grid in pixels.
	// 0 leaves the grid at the image size.
	MaxResolution int `yaml:"max_resolution"`
	// GeometrySimplification is the fraction of vertices to keep, in (0,1].
	GeometrySimplification float32 `yaml:"geometry_simplification"`
	ShowTexture            bool    `yaml:"show_texture"`
	ItemColor              string  `yaml:"item_color"`

	EnhanceDetails            bool    `yaml:"enhance_details"`
	DetailEnhancementStrength float32 `yaml:"detail_enhancement_strength"`
	DetailThreshold           float32 `yaml:"detail_threshold"`
	PreserveMajorFeatures     bool    `yaml:"preserve_major_features"`
	SmoothingKernelSize       int     `yaml:"smoothing_kernel_size"`

	EnableContour         bool    `yaml:"enable_contour"`
	ContourThreshold      float32 `yaml:"contour_threshold"`
	FlattenAboveThreshold bool    `yaml:"flatten_above_threshold"`
	FlattenBelowThreshold bool    `yaml:"flatten_below_threshold"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Formats    []string `yaml:"formats"`
	OutputDir  string   `yaml:"output_dir"`
	ObjectName string   `yaml:"object_name"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Relief: DefaultRelief(),
		Export: ExportConfig{
			Formats:    []string{"stl"},
			OutputDir:  ".",
			ObjectName: export.DefaultObjectName,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// DefaultRelief returns the stock generation settings.
func DefaultRelief() Relief {
	return Relief{
		TargetDepthMm:             20,
		BaseThicknessMm:           10,
		MaxResolution:             1024,
		GeometrySimplification:    1.0,
		ShowTexture:               false,
		ItemColor:                 material.DefaultItemColor.Hex(),
		EnhanceDetails:            false,
		DetailEnhancementStrength: 1.0,
		DetailThreshold:           0.1,
		PreserveMajorFeatures:     true,
		SmoothingKernelSize:       3,
		EnableContour:             false,
		ContourThreshold:          0.8,
		FlattenAboveThreshold:     true,
		FlattenBelowThreshold:     true,
	}
}

// Validate checks every setting and the export section.
func (c *Config) Validate() error {
	if err := c.Relief.Validate(); err != nil {
		return err
	}
	if len(c.Export.Formats) == 0 {
		return fmt.Errorf("%w: no export formats", ErrInvalidConfig)
	}
	for _, f := range c.Export.Formats {
		if _, err := export.Lookup(f); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Validate rejects settings the pipeline cannot honor.
func (r Relief) Validate() error {
	switch {
	case !(r.TargetDepthMm > 0):
		return invalid("target_depth_mm must be positive, got %v", r.TargetDepthMm)
	case !(r.BaseThicknessMm >= 0):
		return invalid("base_thickness_mm must not be negative, got %v", r.BaseThicknessMm)
	case r.TargetWidthMm != nil && !(*r.TargetWidthMm > 0):
		return invalid("target_width_mm must be positive, got %v", *r.TargetWidthMm)
	case r.TargetHeightMm != nil && !(*r.TargetHeightMm > 0):
		return invalid("target_height_mm must be positive, got %v", *r.TargetHeightMm)
	case r.MaxResolution < 0 || r.MaxResolution == 1:
		return invalid("max_resolution must be 0 (unset) or at least 2, got %d", r.MaxResolution)
	case !(r.GeometrySimplification > 0 && r.GeometrySimplification <= 1):
		return invalid("geometry_simplification must be in (0,1], got %v", r.GeometrySimplification)
	case !(r.DetailEnhancementStrength >= 0):
		return invalid("detail_enhancement_strength must not be negative, got %v", r.DetailEnhancementStrength)
	case !(r.DetailThreshold >= 0 && r.DetailThreshold <= 1):
		return invalid("detail_threshold must be in [0,1], got %v", r.DetailThreshold)
	case r.SmoothingKernelSize < 0 || (r.SmoothingKernelSize > 1 && r.SmoothingKernelSize%2 == 0):
		return invalid("smoothing_kernel_size must be 0, 1 or an odd number, got %d", r.SmoothingKernelSize)
	case !(r.ContourThreshold >= 0 && r.ContourThreshold <= 1):
		return invalid("contour_threshold must be in [0,1], got %v", r.ContourThreshold)
	}
	if _, err := material.ParseColor(r.ItemColor); err != nil {
		return fmt.Errorf("%w: item_color: %w", ErrInvalidConfig, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// Color returns the parsed item color, falling back to the default for a
// malformed value.
func (r Relief) Color() material.Color {
	c, err := material.ParseColor(r.ItemColor)
	if err != nil {
		return material.DefaultItemColor
	}
	return c
}

// Params returns the physical dimensions for an image of the given pixel
// size.
func (r Relief) Params(width, height int) relief.Params {
	w, h := relief.Dimensions(float32(width)/float32(height), r.TargetWidthMm, r.TargetHeightMm)
	return relief.Params{
		MeshWidthMm:     w,
		MeshHeightMm:    h,
		TargetDepthMm:   r.TargetDepthMm,
		BaseThicknessMm: r.BaseThicknessMm,
	}
}

// DepthOptions maps the enhancement and contour settings onto the depth
// processor.
func (r Relief) DepthOptions() depthmap.Options {
	threshold := r.ContourThreshold
	return depthmap.Options{
		Enhance: depthmap.EnhanceOptions{
			Enabled:               r.EnhanceDetails,
			Strength:              r.DetailEnhancementStrength,
			DetailThreshold:       r.DetailThreshold,
			PreserveMajorFeatures: r.PreserveMajorFeatures,
			SmoothingKernelSize:   r.SmoothingKernelSize,
		},
		Contour: depthmap.ContourOptions{
			Enabled:   r.EnableContour,
			Threshold: &threshold,
			Above:     r.FlattenAboveThreshold,
			Below:     r.FlattenBelowThreshold,
		},
	}
}

// Clone returns a copy that shares no pointers with r.
func (r Relief) Clone() Relief {
	if r.TargetWidthMm != nil {
		w := *r.TargetWidthMm
		r.TargetWidthMm = &w
	}
	if r.TargetHeightMm != nil {
		h := *r.TargetHeightMm
		r.TargetHeightMm = &h
	}
	return r
}

// ExportFormats returns the configured format names, lower-cased, with
// duplicates removed.
func (e ExportConfig) ExportFormats() []string {
	var out []string
	for _, f := range e.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
