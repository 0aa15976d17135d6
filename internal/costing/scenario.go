package costing

import "fmt"

// Scenario overrides part of a base input. Zero values inherit from the base;
// CycleFactor and ScrapFactor scale every routing step (1.10 = +10%).
type Scenario struct {
	Name          string  `json:"name" yaml:"name"`
	Quantity      int     `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	MaterialPrice float64 `json:"material_price,omitempty" yaml:"material_price,omitempty"`
	CycleFactor   float64 `json:"cycle_factor,omitempty" yaml:"cycle_factor,omitempty"`
	ScrapFactor   float64 `json:"scrap_factor,omitempty" yaml:"scrap_factor,omitempty"`

	MonteCarlo bool    `json:"monte_carlo,omitempty" yaml:"monte_carlo,omitempty"`
	Iterations int     `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Sigma      float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`
	Seed       uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name          string        `json:"name"`
	Quantity      int           `json:"quantity"`
	MaterialPrice float64       `json:"material_price"`
	Breakdown     CostBreakdown `json:"breakdown"`
	Distribution  *Summary      `json:"distribution,omitempty"`
}

// Apply returns a copy of base with the scenario's overrides applied.
func (s Scenario) Apply(base Input) Input {
	out := base
	if s.Quantity > 0 {
		out.Quantity = s.Quantity
	}
	if s.MaterialPrice > 0 {
		out.MaterialPrice = s.MaterialPrice
	}

	cycle, scrap := s.CycleFactor, s.ScrapFactor
	if cycle <= 0 {
		cycle = 1
	}
	if scrap <= 0 {
		scrap = 1
	}

	out.Routing = make([]RoutingStep, len(base.Routing))
	for i, step := range base.Routing {
		step.CycleTimeMin *= cycle
		step.ScrapPct = clamp(step.ScrapPct*scrap, 0, maxScrapPct)
		out.Routing[i] = step
	}
	return out
}

// MCParams returns the sampler settings of a Monte-Carlo scenario: Sigma for
// material and cycle noise and Sigma/8 for scrap noise.
func (s Scenario) MCParams(workers int) MCParams {
	return MCParams{
		SDMaterial: s.Sigma,
		SDCycle:    s.Sigma,
		SDScrap:    s.Sigma / 8.0,
		Iterations: s.Iterations,
		Seed:       s.Seed,
		Workers:    workers,
	}
}

// RunScenarios evaluates each scenario against base. Scenarios with MonteCarlo
// set also sample the cost distribution using Sigma for material and cycle
// noise and Sigma/8 for scrap noise.
func RunScenarios(base Input, scenarios []Scenario, workers int) ([]ScenarioResult, error) {
	results := make([]ScenarioResult, 0, len(scenarios))
	for i, sc := range scenarios {
		in := sc.Apply(base)

		b, err := CostOnce(in)
		if err != nil {
			return nil, fmt.Errorf("scenario %d (%s): %w", i+1, sc.Name, err)
		}
		res := ScenarioResult{
			Name:          sc.Name,
			Quantity:      in.Quantity,
			MaterialPrice: in.MaterialPrice,
			Breakdown:     b,
		}

		if sc.MonteCarlo {
			samples, err := RunMC(in, sc.MCParams(workers))
			if err != nil {
				return nil, fmt.Errorf("scenario %d (%s) monte carlo: %w", i+1, sc.Name, err)
			}
			summary := Summarize(samples)
			res.Distribution = &summary
		}
		results = append(results, res)
	}
	return results, nil
}
