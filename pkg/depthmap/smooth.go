package depthmap

import "math"

// Smooth applies a separable Gaussian blur, horizontal pass then vertical,
// with edge pixels repeated past the border. sigma is kernelSize/3.
// A kernelSize of 1 or less returns values unchanged (the same slice).
func Smooth(values []float32, width, height, kernelSize int) []float32 {
	if kernelSize <= 1 {
		return values
	}

	kernel := gaussianKernel(kernelSize)
	radius := len(kernel) / 2

	temp := make([]float32, len(values))
	for y := range height {
		row := y * width
		for x := range width {
			var sum float32
			for k := -radius; k <= radius; k++ {
				xk := min(width-1, max(0, x+k))
				sum += values[row+xk] * kernel[k+radius]
			}
			temp[row+x] = sum
		}
	}

	out := make([]float32, len(values))
	for y := range height {
		for x := range width {
			var sum float32
			for k := -radius; k <= radius; k++ {
				yk := min(height-1, max(0, y+k))
				sum += temp[yk*width+x] * kernel[k+radius]
			}
			out[y*width+x] = sum
		}
	}
	return out
}

// gaussianKernel returns a normalized 1D kernel of 2*(size/2)+1 taps.
func gaussianKernel(size int) []float32 {
	sigma := float64(size) / 3
	radius := size / 2

	kernel := make([]float32, 2*radius+1)
	var sum float64
	weights := make([]float64, len(kernel))
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		weights[i+radius] = w
		sum += w
	}
	for i, w := range weights {
		kernel[i] = float32(w / sum)
	}
	return kernel
}
