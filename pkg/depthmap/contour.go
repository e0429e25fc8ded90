package depthmap

// ContourOptions controls threshold flattening. Threshold is a pointer so
// that "unset" can be told apart from 0.
type ContourOptions struct {
	Enabled   bool
	Threshold *float32
	Above     bool
	Below     bool
}

// ContourResult describes what Flatten did.
type ContourResult struct {
	Applied bool
	// Rescued is set when neither direction was enabled and Above was
	// forced on.
	Rescued bool
}

// DefaultContourOptions returns the stock settings with flattening off.
func DefaultContourOptions() ContourOptions {
	t := float32(0.8)
	return ContourOptions{Threshold: &t, Above: true, Below: true}
}

// Flatten snaps values at or above the threshold to 1 and values below it
// to 0, depending on which directions are enabled. The above rule runs
// first and the below rule sees its output. Disabled options, or a nil
// threshold, return the input slice unchanged.
func Flatten(values []float32, opts ContourOptions) ([]float32, ContourResult) {
	var res ContourResult
	if !opts.Enabled || opts.Threshold == nil {
		return values, res
	}

	if !opts.Above && !opts.Below {
		opts.Above = true
		res.Rescued = true
	}
	res.Applied = true

	t := *opts.Threshold
	out := make([]float32, len(values))
	for i, v := range values {
		if opts.Above && v >= t {
			v = 1
		}
		if opts.Below && v < t {
			v = 0
		}
		out[i] = v
	}
	return out, res
}
