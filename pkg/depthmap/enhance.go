package depthmap

import "math"

// EnhanceOptions controls detail enhancement.
type EnhanceOptions struct {
	Enabled               bool
	Strength              float32
	DetailThreshold       float32
	PreserveMajorFeatures bool
	SmoothingKernelSize   int
}

// DefaultEnhanceOptions returns the stock settings with enhancement off.
func DefaultEnhanceOptions() EnhanceOptions {
	return EnhanceOptions{
		Strength:              1.0,
		DetailThreshold:       0.1,
		PreserveMajorFeatures: true,
		SmoothingKernelSize:   3,
	}
}

// Enhance boosts fine relief detail through histogram equalization.
//
// With PreserveMajorFeatures, only low-gradient pixels (gradient magnitude
// below DetailThreshold) are equalized and steep edges keep their values.
// The result is stretched to [0,1] unless it is flat.
// When disabled the input slice is returned as is.
func Enhance(values []float32, width, height int, opts EnhanceOptions) []float32 {
	if !opts.Enabled {
		return values
	}

	enhanced := make([]float32, len(values))
	copy(enhanced, values)

	if opts.SmoothingKernelSize > 1 {
		enhanced = Smooth(enhanced, width, height, opts.SmoothingKernelSize)
	}

	if opts.PreserveMajorFeatures {
		enhanced = equalizeDetail(enhanced, width, height, opts)
	} else {
		enhanced = Equalize(enhanced, opts.Strength)
	}

	lo, hi := minMax(enhanced)
	if hi > lo {
		span := hi - lo
		for i, v := range enhanced {
			enhanced[i] = (v - lo) / span
		}
	}
	return enhanced
}

func equalizeDetail(values []float32, width, height int, opts EnhanceOptions) []float32 {
	grad := gradientMagnitude(values, width, height)

	detail := make([]bool, len(values))
	masked := make([]float32, len(values))
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for i, g := range grad {
		if g < opts.DetailThreshold {
			detail[i] = true
			masked[i] = values[i]
			lo = min(lo, values[i])
			hi = max(hi, values[i])
		}
	}

	// No spread among detail pixels: nothing to equalize.
	if !(hi > lo) {
		return values
	}

	eq := Equalize(masked, opts.Strength)
	for i := range values {
		if detail[i] {
			values[i] = eq[i]
		}
	}
	return values
}

// gradientMagnitude uses central differences; border pixels get 0.
func gradientMagnitude(values []float32, width, height int) []float32 {
	grad := make([]float32, len(values))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			gx := float64(values[i+1] - values[i-1])
			gy := float64(values[i+width] - values[i-width])
			grad[i] = float32(math.Sqrt(gx*gx + gy*gy))
		}
	}
	return grad
}
