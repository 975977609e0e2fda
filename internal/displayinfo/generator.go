// Package displayinfo produces the synthetic presentation metadata attached
// to products.
package displayinfo

import (
	"math"
	"math/rand/v2"

	"catalog-service/internal/model"
)

// Ranges of the generated values, inclusive.
const (
	MinRating   = 4.7
	MaxRating   = 5.0
	MinSales    = 10
	MaxSales    = 70
	MinDiscount = 5
	MaxDiscount = 30
)

// Source is the randomness used by the Generator. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// Generator creates DisplayInfo values.
type Generator struct {
	src Source
}

// NewGenerator returns a Generator backed by src, or by the goroutine-safe
// global source when src is nil.
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = globalSource{}
	}
	return &Generator{src: src}
}

// Generate returns a rating in [4.7, 5.0] rounded to one decimal, a sales
// count in [10, 70] and a discount percentage in [5, 30].
func (g *Generator) Generate() model.DisplayInfo {
	rating := MinRating + g.src.Float64()*(MaxRating-MinRating)
	rating = math.Round(rating*10) / 10
	// guard against float drift at the bounds
	rating = math.Min(MaxRating, math.Max(MinRating, rating))

	return model.DisplayInfo{
		Rating:             rating,
		SalesCount:         MinSales + g.src.IntN(MaxSales-MinSales+1),
		DiscountPercentage: float64(MinDiscount + g.src.IntN(MaxDiscount-MinDiscount+1)),
	}
}
