package stroke

import "math"

// DefaultSmoothWeights is the three-point kernel used for pen input.
var DefaultSmoothWeights = []float64{1, 3, 1}

// Smooth applies a symmetric weighted moving average to s.
//
// Points within len(weights)/2 of either end are left unchanged. Each
// interior point becomes the weighted mean of its unsmoothed neighbours,
// rounded to two decimals. Strokes shorter than the kernel are returned as
// a copy without modification.
func Smooth(s Stroke, weights []float64) Stroke {
	out := append(Stroke(nil), s...)
	if len(weights) == 0 || len(s) < len(weights) {
		return out
	}

	offset := len(weights) / 2
	var wsum float64
	for _, w := range weights {
		wsum += w
	}
	if wsum == 0 {
		return out
	}

	for i := offset; i < len(s)-offset; i++ {
		var ax, ay float64
		for j, w := range weights {
			p := s[i+j-offset]
			ax += w * p.X
			ay += w * p.Y
		}
		out[i] = Point{X: Round(ax/wsum, 2), Y: Round(ay/wsum, 2)}
	}
	return out
}

// Interpolate resamples s at approximately arc-length spacing d.
//
// An anchor starts at the first point. The scan moves forward until a point
// lies at least d from the anchor; the point exactly d along that segment
// becomes the next output point and the new anchor. The scan index is then
// rewound by half of the span just consumed, which keeps the piecewise-linear
// approximation from drifting on curved input.
func Interpolate(s Stroke, d float64) Stroke {
	if len(s) == 0 {
		return Stroke{}
	}
	if d <= 0 || len(s) == 1 {
		return append(Stroke(nil), s...)
	}

	current := s[0]
	out := Stroke{current}

	index, lastIndex := 1, 0
	for index < len(s) {
		p := s[index]
		if Distance(current, p) < d {
			index++
			continue
		}

		next := stepToward(current, p, d)
		if next == current {
			// rounding swallowed the step; move on rather than spin
			index++
			continue
		}
		out = append(out, next)
		current = next

		lastIndex += (index - lastIndex) / 2
		index = lastIndex + 1
	}
	return out
}

// stepToward returns the point at distance d from a on the line towards b,
// rounded to two decimals away from a so it is never closer than d.
func stepToward(a, b Point, d float64) Point {
	if Round(a.X, 2) == Round(b.X, 2) {
		if b.Y > a.Y {
			return Point{X: Round(a.X, 2), Y: roundAway(a.Y+d, a.Y)}
		}
		return Point{X: Round(a.X, 2), Y: roundAway(a.Y-d, a.Y)}
	}

	slope := (b.Y - a.Y) / (b.X - a.X)
	dx := math.Sqrt(d * d / (slope*slope + 1))
	x := a.X + dx
	if b.X < a.X {
		x = a.X - dx
	}
	y := slope*x + b.Y - slope*b.X
	return Point{X: roundAway(x, a.X), Y: roundAway(y, a.Y)}
}

// roundAway rounds v to two decimals, moving one hundredth further from
// origin when plain rounding would move it closer.
func roundAway(v, origin float64) float64 {
	r := Round(v, 2)
	if math.Abs(r-origin) >= math.Abs(v-origin)-1e-12 {
		return r
	}
	if v > origin {
		return Round(r+0.01, 2)
	}
	return Round(r-0.01, 2)
}

// Downsample keeps the points at indices 0, interval, 2*interval, ...
func Downsample(s Stroke, interval int) Stroke {
	if interval <= 1 {
		return append(Stroke(nil), s...)
	}
	out := make(Stroke, 0, (len(s)+interval-1)/interval)
	for i := 0; i < len(s); i += interval {
		out = append(out, s[i])
	}
	return out
}

// PreprocessOptions controls Preprocess.
type PreprocessOptions struct {
	// Distance is the interpolation spacing.
	Distance float64
	// Interval is the downsampling step.
	Interval int
	// Smooth enables smoothing before interpolation.
	Smooth bool
	// Weights is the smoothing kernel; DefaultSmoothWeights when empty.
	Weights []float64
}

// Preprocess smooths (optionally), interpolates and downsamples each stroke.
// Strokes left with fewer than two points are dropped.
func Preprocess(strokes []Stroke, opts PreprocessOptions) []Stroke {
	weights := opts.Weights
	if len(weights) == 0 {
		weights = DefaultSmoothWeights
	}

	out := make([]Stroke, 0, len(strokes))
	for _, s := range strokes {
		if opts.Smooth {
			s = Smooth(s, weights)
		}
		s = Downsample(Interpolate(s, opts.Distance), opts.Interval)
		if len(s) < 2 {
			continue
		}
		out = append(out, s)
	}
	return out
}
