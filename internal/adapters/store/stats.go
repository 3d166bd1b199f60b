package store

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ghalamif/VibraFlow/internal/domain"
)

func summarize(xs []float64) domain.WindowStats {
	n := len(xs)
	if n == 0 {
		return domain.WindowStats{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if n < 2 {
		std = 0
	}
	return domain.WindowStats{
		Count:  n,
		Mean:   mean,
		StdDev: std,
		RMS:    math.Sqrt(floats.Dot(xs, xs) / float64(n)),
		Peak:   floats.Norm(xs, math.Inf(1)),
	}
}
