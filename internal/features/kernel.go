package features

import (
	"fmt"

	"github.com/anthonynsimon/bild/convolution"
)

// Kernel is a normalized 3x3 weighting kernel.
type Kernel struct {
	name string
	m    convolution.Matrix
}

// GaussianKernel returns the [[1,2,1],[2,4,2],[1,2,1]]/16 kernel.
func GaussianKernel() Kernel {
	return newKernel("gaussian", []float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	})
}

// UniformKernel returns the 3x3 box kernel with every weight 1/9.
func UniformKernel() Kernel {
	return newKernel("uniform", []float64{
		1, 1, 1,
		1, 1, 1,
		1, 1, 1,
	})
}

// KernelByName returns the kernel called name ("gaussian" or "uniform").
func KernelByName(name string) (Kernel, error) {
	switch name {
	case "gaussian", "":
		return GaussianKernel(), nil
	case "uniform":
		return UniformKernel(), nil
	default:
		return Kernel{}, fmt.Errorf("unknown heatmap kernel %q", name)
	}
}

func newKernel(name string, weights []float64) Kernel {
	k := convolution.NewKernel(3, 3)
	copy(k.Matrix, weights)
	return Kernel{name: name, m: k.Normalized()}
}

// Name returns the kernel name.
func (k Kernel) Name() string { return k.name }

// Weights returns the normalized weights in row-major order.
func (k Kernel) Weights() []float64 {
	out := make([]float64, 0, 9)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			out = append(out, k.weight(dr, dc))
		}
	}
	return out
}

// weight returns the weight for the neighbour at offset (dr, dc).
func (k Kernel) weight(dr, dc int) float64 {
	if k.m == nil {
		return 0
	}
	return k.m.At(dc+1, dr+1)
}
