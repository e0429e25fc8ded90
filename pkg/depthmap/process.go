package depthmap

// Options bundles the conditioning stages.
type Options struct {
	Enhance EnhanceOptions
	Contour ContourOptions
}

// DefaultOptions returns stock settings with every stage disabled.
func DefaultOptions() Options {
	return Options{
		Enhance: DefaultEnhanceOptions(),
		Contour: DefaultContourOptions(),
	}
}

// Report records which stages changed the grid.
type Report struct {
	Enhanced       bool
	Flattened      bool
	ContourRescued bool
}

// Process runs enhancement then contour flattening on g. Each stage output
// is clamped to [0,1]. The input grid is never modified.
func Process(g Grid, opts Options) (Grid, Report) {
	var rep Report

	values := Clamp01(g.Values)

	if opts.Enhance.Enabled {
		values = Clamp01(Enhance(values, g.Width, g.Height, opts.Enhance))
		rep.Enhanced = true
	}

	var cr ContourResult
	values, cr = Flatten(values, opts.Contour)
	values = Clamp01(values)
	rep.Flattened = cr.Applied
	rep.ContourRescued = cr.Rescued

	return Grid{Width: g.Width, Height: g.Height, Values: values}, rep
}
