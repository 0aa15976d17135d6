package costing

import (
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// MaxIterations caps a single Monte-Carlo run.
	MaxIterations = 200_000

	minMaterialPrice = 0.01
	minCycleMinutes  = 0.05
	maxScrapPct      = 0.35
)

// MCParams controls the noise applied by RunMC. SDMaterial and SDCycle are
// relative standard deviations, SDScrap is additive.
type MCParams struct {
	SDMaterial float64 `json:"sd_mat"`
	SDCycle    float64 `json:"sd_cycle"`
	SDScrap    float64 `json:"sd_scrap"`
	Iterations int     `json:"iterations"`
	Seed       uint64  `json:"seed"`
	Workers    int     `json:"workers,omitempty"`
}

// Validate checks the noise magnitudes and iteration count.
func (p MCParams) Validate() error {
	if p.SDMaterial < 0 || p.SDCycle < 0 || p.SDScrap < 0 {
		return fmt.Errorf("%w: standard deviations must be >= 0, got sd_mat=%.3f sd_cycle=%.3f sd_scrap=%.3f",
			ErrInvalidParams, p.SDMaterial, p.SDCycle, p.SDScrap)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be >= 1, got %d", ErrInvalidParams, p.Iterations)
	}
	if p.Iterations > MaxIterations {
		return fmt.Errorf("%w: %d > %d", ErrTooManyIterations, p.Iterations, MaxIterations)
	}
	return nil
}

// RunMC samples the per-piece cost p.Iterations times under random material
// price, cycle time and scrap noise. Iteration i always draws from a PCG stream
// seeded with (p.Seed, i), so the output does not depend on p.Workers.
func RunMC(in Input, p MCParams) ([]float64, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	base := SortRouting(in.Routing)
	out := make([]float64, p.Iterations)

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > p.Iterations {
		workers = p.Iterations
	}
	chunk := (p.Iterations + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < p.Iterations; lo += chunk {
		hi := min(lo+chunk, p.Iterations)
		g.Go(func() error {
			routing := make([]RoutingStep, len(base))
			for i := lo; i < hi; i++ {
				v, err := sampleOnce(in, base, routing, p, uint64(i))
				if err != nil {
					return fmt.Errorf("iteration %d: %w", i, err)
				}
				out[i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sampleOnce perturbs a scratch copy of the routing and evaluates it.
func sampleOnce(in Input, base, scratch []RoutingStep, p MCParams, iteration uint64) (float64, error) {
	src := rand.NewPCG(p.Seed, iteration)

	price := distuv.Normal{Mu: in.MaterialPrice, Sigma: p.SDMaterial * in.MaterialPrice, Src: src}.Rand()

	copy(scratch, base)
	cycleNoise := distuv.Normal{Mu: 1, Sigma: p.SDCycle, Src: src}
	for i := range scratch {
		scratch[i].CycleTimeMin = math.Max(minCycleMinutes, scratch[i].CycleTimeMin*cycleNoise.Rand())
	}
	scrapNoise := distuv.Normal{Mu: 0, Sigma: p.SDScrap, Src: src}
	for i := range scratch {
		scratch[i].ScrapPct = clamp(scratch[i].ScrapPct+scrapNoise.Rand(), 0, maxScrapPct)
	}

	trial := in
	trial.Routing = scratch
	trial.MaterialPrice = math.Max(minMaterialPrice, price)

	b, err := CostOnce(trial)
	if err != nil {
		return 0, err
	}
	return b.TotalCostPerPiece, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
