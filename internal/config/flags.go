package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagDepth    = flag.Float64("depth", 0, "Relief depth in mm")
	flagBase     = flag.Float64("base", -1, "Base thickness in mm")
	flagWidth    = flag.Float64("width", 0, "Target width in mm")
	flagHeight   = flag.Float64("height", 0, "Target height in mm")
	flagMaxRes   = flag.Int("max-res", -1, "Maximum depth grid resolution in pixels, 0 for none")
	flagSimplify = flag.Float64("simplify", 0, "Fraction of vertices to keep, in (0,1]")
	flagColor    = flag.String("color", "", "Item color as #rgb or #rrggbb")
	flagTexture  = flag.Bool("texture", false, "Texture the top surface with the image")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config. Flags left at their
// zero value do not override; -base and -max-res use -1 as unset since 0
// is valid for both.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagDepth > 0 {
		cfg.Relief.TargetDepthMm = float32(*flagDepth)
	}
	if *flagBase >= 0 {
		cfg.Relief.BaseThicknessMm = float32(*flagBase)
	}
	if *flagWidth > 0 {
		w := float32(*flagWidth)
		cfg.Relief.TargetWidthMm = &w
	}
	if *flagHeight > 0 {
		h := float32(*flagHeight)
		cfg.Relief.TargetHeightMm = &h
	}
	if *flagMaxRes >= 0 {
		cfg.Relief.MaxResolution = *flagMaxRes
	}
	if *flagSimplify > 0 {
		cfg.Relief.GeometrySimplification = float32(*flagSimplify)
	}
	if *flagColor != "" {
		cfg.Relief.ItemColor = *flagColor
	}
	if *flagTexture {
		cfg.Relief.ShowTexture = true
	}
}
