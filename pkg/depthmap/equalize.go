package depthmap

// Equalize remaps values through their cumulative histogram (256 bins).
//
// strength blends the equalized curve with the identity: 0 leaves values
// on their own bins, 1 is full equalization, above 1 over-enhances. The
// blended curve is clipped to [0,1]. Input that falls into a single bin
// has nothing to spread and is returned as an unchanged copy.
func Equalize(values []float32, strength float32) []float32 {
	const bins = 256
	out := make([]float32, len(values))
	if len(values) == 0 {
		return out
	}

	hist := Histogram(values, bins)
	if populatedBins(hist) < 2 {
		copy(out, values)
		return out
	}

	var cdf [bins]float32
	total := 0
	for i, n := range hist {
		total += n
		cdf[i] = float32(total)
	}
	for i := range cdf {
		cdf[i] /= float32(total)
	}

	if strength != 1 {
		for i := range cdf {
			linear := float32(i) / (bins - 1)
			v := linear + strength*(cdf[i]-linear)
			cdf[i] = min(1, max(0, v))
		}
	}

	for i, v := range values {
		out[i] = cdf[binIndex(v, bins)]
	}
	return out
}

func populatedBins(hist []int) int {
	n := 0
	for _, c := range hist {
		if c > 0 {
			n++
		}
	}
	return n
}
