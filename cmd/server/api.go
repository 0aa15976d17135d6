package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/logging"
	"github.com/Simplici0/costworks/internal/material"
	"github.com/Simplici0/costworks/internal/metrics"
	"github.com/Simplici0/costworks/internal/pricing"
	"github.com/Simplici0/costworks/internal/quality"
	"github.com/Simplici0/costworks/internal/report"
	"github.com/Simplici0/costworks/internal/store"
)

// calculationRequest is the JSON body shared by the costing endpoints. Zero
// tariffs fall back to the stored rate tables; a zero material price is
// looked up in the catalogue when Material is set.
type calculationRequest struct {
	Project       string                `json:"project"`
	Material      string                `json:"material"`
	Quantity      int                   `json:"quantity"`
	NetMassKg     float64               `json:"net_mass_kg"`
	Shape         *material.Shape       `json:"shape,omitempty"`
	MaterialPrice float64               `json:"material_price"`
	Market        material.PriceInputs  `json:"market"`
	LaborRate     float64               `json:"labor_rate,omitempty"`
	EnergyPrice   float64               `json:"energy_price,omitempty"`
	MachineRates  map[string]float64    `json:"machine_rates,omitempty"`
	Lean          costing.LeanParams    `json:"lean"`
	Routing       []costing.RoutingStep `json:"routing"`
	BOM           []costing.BOMLine     `json:"bom"`
	AutoFix       bool                  `json:"auto_fix"`
	HoursPerDay   float64               `json:"hours_per_day,omitempty"`
}

// preparedRun is a request resolved against the stored tariffs.
type preparedRun struct {
	Input       costing.Input
	Tariffs     store.Tariffs
	PriceSource string
	Issues      []quality.Issue
}

func (s *server) prepare(ctx context.Context, req calculationRequest) (preparedRun, error) {
	t, err := s.store.Tariffs(ctx)
	if err != nil {
		return preparedRun{}, err
	}
	if req.LaborRate > 0 {
		t.Rates.LaborRate = req.LaborRate
	}
	if req.EnergyPrice > 0 {
		t.Rates.EnergyPrice = req.EnergyPrice
	}
	for process, rate := range req.MachineRates {
		t.Rates.MachineRates[process] = rate
	}
	if req.HoursPerDay > 0 {
		t.HoursPerDay = req.HoursPerDay
	}

	catalogue, err := s.store.Materials(ctx)
	if err != nil {
		return preparedRun{}, err
	}

	run := preparedRun{Tariffs: t, PriceSource: "manual"}
	price := req.MaterialPrice
	if price == 0 && req.Material != "" {
		p, src, err := catalogue.Price(req.Material, req.Market)
		if err != nil {
			return preparedRun{}, unprocessable("%v", err)
		}
		price, run.PriceSource = p, src
	}

	mass := req.NetMassKg
	if mass == 0 && req.Shape != nil {
		shape := *req.Shape
		if shape.Grade == "" {
			shape.Grade = req.Material
		}
		if g, ok := catalogue[req.Material]; ok && shape.Family == "" {
			shape.Family = g.Family
		}
		mass = material.MassKg(shape)
	}

	routing, bom := req.Routing, req.BOM
	if req.AutoFix {
		routing = quality.FixRouting(routing, quality.DefaultFixOptions())
		bom = quality.FixBOM(bom, quality.DefaultFixOptions())
	}

	run.Input = costing.Input{
		Routing:       routing,
		BOM:           bom,
		Quantity:      req.Quantity,
		NetMassKg:     mass,
		MaterialPrice: price,
		Rates:         t.Rates,
		Lean:          req.Lean,
	}

	run.Issues = s.audit(routing, bom, quality.Context{
		Quantity:      req.Quantity,
		Material:      req.Material,
		MaterialPrice: price,
		Aluminium:     catalogue.IsAluminium(req.Material),
	}, t.Rates.MachineRates)
	return run, nil
}

func (s *server) audit(routing []costing.RoutingStep, bom []costing.BOMLine, ctx quality.Context, rates map[string]float64) []quality.Issue {
	issues := quality.NewAuditor(s.log, rates).Run(routing, bom, ctx)
	for _, is := range issues {
		metrics.RecordAuditIssue(is.Table, string(is.Severity))
	}
	return issues
}

// blockingError rejects runs with high-severity findings.
func blockingError(issues []quality.Issue) *errorResponse {
	if !quality.Blocking(issues) {
		return nil
	}
	return &errorResponse{Error: "input has blocking data quality issues", Issues: issues}
}

type calculationResponse struct {
	Breakdown   costing.CostBreakdown `json:"breakdown"`
	Steps       []costing.StepCost    `json:"steps"`
	Capacity    []costing.CapacityRow `json:"capacity"`
	PriceSource string                `json:"price_source"`
	Issues      []quality.Issue       `json:"issues,omitempty"`
}

func (s *server) evaluate(run preparedRun) (calculationResponse, error) {
	b, steps, err := costing.Evaluate(run.Input)
	metrics.RecordCalculation(err)
	if err != nil {
		return calculationResponse{}, err
	}
	capacity, err := costing.CapacityTable(run.Input.Routing, run.Input.Quantity, run.Tariffs.HoursPerDay, run.Tariffs.Capacity)
	if err != nil {
		return calculationResponse{}, err
	}
	return calculationResponse{
		Breakdown:   b,
		Steps:       steps,
		Capacity:    capacity,
		PriceSource: run.PriceSource,
		Issues:      run.Issues,
	}, nil
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	run, err := s.prepare(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if blocked := blockingError(run.Issues); blocked != nil {
		writeJSON(w, http.StatusUnprocessableEntity, blocked)
		return
	}

	resp, err := s.evaluate(run)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type simulateRequest struct {
	calculationRequest
	MonteCarlo costing.MCParams `json:"monte_carlo"`
}

type simulateResponse struct {
	Breakdown costing.CostBreakdown `json:"breakdown"`
	Summary   costing.Summary       `json:"summary"`
	Samples   []float64             `json:"samples,omitempty"`
}

func (s *server) simulate(run preparedRun, p costing.MCParams) ([]float64, error) {
	if p.Iterations > s.opts.MaxIterations {
		return nil, fmt.Errorf("%w: %d > %d", costing.ErrTooManyIterations, p.Iterations, s.opts.MaxIterations)
	}
	p.Workers = s.opts.MCWorkers

	start := time.Now()
	samples, err := costing.RunMC(run.Input, p)
	d := time.Since(start)
	metrics.RecordSimulation(p.Iterations, d, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("monte carlo completed",
		zap.Int("iterations", p.Iterations),
		zap.Uint64("seed", p.Seed),
		zap.Int("workers", p.Workers),
		zap.Duration("duration", d),
	)
	return samples, nil
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	run, err := s.prepare(r.Context(), req.calculationRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if blocked := blockingError(run.Issues); blocked != nil {
		writeJSON(w, http.StatusUnprocessableEntity, blocked)
		return
	}

	b, err := costing.CostOnce(run.Input)
	metrics.RecordCalculation(err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	samples, err := s.simulate(run, req.MonteCarlo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := simulateResponse{Breakdown: b, Summary: costing.Summarize(samples)}
	if r.URL.Query().Get("samples") == "1" {
		resp.Samples = samples
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	var req calculationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.prepare(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rows, err := costing.CapacityTable(run.Input.Routing, run.Input.Quantity, run.Tariffs.HoursPerDay, run.Tariffs.Capacity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := report.WriteCapacityCSV(w, rows); err != nil {
			s.log.Error("write capacity csv", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type auditRequest struct {
	Routing       []costing.RoutingStep `json:"routing"`
	BOM           []costing.BOMLine     `json:"bom"`
	Quantity      int                   `json:"quantity"`
	Material      string                `json:"material"`
	MaterialPrice float64               `json:"material_price"`
	Fix           *quality.FixOptions   `json:"fix,omitempty"`
}

type auditResponse struct {
	Issues       []quality.Issue       `json:"issues"`
	Summary      quality.Summary       `json:"summary"`
	FixedRouting []costing.RoutingStep `json:"fixed_routing"`
	FixedBOM     []costing.BOMLine     `json:"fixed_bom"`
	Remaining    []quality.Issue       `json:"remaining"`
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.store.Tariffs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	catalogue, err := s.store.Materials(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	qctx := quality.Context{
		Quantity:      req.Quantity,
		Material:      req.Material,
		MaterialPrice: req.MaterialPrice,
		Aluminium:     catalogue.IsAluminium(req.Material),
	}
	issues := s.audit(req.Routing, req.BOM, qctx, t.Rates.MachineRates)

	opts := quality.DefaultFixOptions()
	if req.Fix != nil {
		opts = *req.Fix
	}
	fixedRouting := quality.FixRouting(req.Routing, opts)
	fixedBOM := quality.FixBOM(req.BOM, opts)
	auditor := quality.NewAuditor(nil, t.Rates.MachineRates)
	remaining := append(auditor.Routing(fixedRouting), auditor.BOM(fixedBOM)...)

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := report.WriteIssuesCSV(w, issues); err != nil {
			s.log.Error("write issues csv", zap.Error(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, auditResponse{
		Issues:       nonNil(issues),
		Summary:      quality.Summarize(issues),
		FixedRouting: fixedRouting,
		FixedBOM:     fixedBOM,
		Remaining:    nonNil(remaining),
	})
}

func nonNil(issues []quality.Issue) []quality.Issue {
	if issues == nil {
		return []quality.Issue{}
	}
	return issues
}

type scenariosRequest struct {
	Base      calculationRequest `json:"base"`
	Scenarios []costing.Scenario `json:"scenarios"`
}

func (s *server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	var req scenariosRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Scenarios) == 0 {
		s.writeError(w, r, badRequest("at least one scenario is required"))
		return
	}
	for _, sc := range req.Scenarios {
		if !sc.MonteCarlo {
			continue
		}
		if err := sc.MCParams(s.opts.MCWorkers).Validate(); err != nil {
			s.writeError(w, r, fmt.Errorf("scenario %s: %w", sc.Name, err))
			return
		}
		if sc.Iterations > s.opts.MaxIterations {
			s.writeError(w, r, fmt.Errorf("scenario %s: %w", sc.Name, costing.ErrTooManyIterations))
			return
		}
	}

	run, err := s.prepare(r.Context(), req.Base)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := costing.RunScenarios(run.Input, req.Scenarios, s.opts.MCWorkers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := report.WriteScenariosCSV(w, results); err != nil {
			s.log.Error("write scenarios csv", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *server) handleFacts(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.prepare(r.Context(), req.calculationRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, steps, err := costing.Evaluate(run.Input)
	metrics.RecordCalculation(err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var samples []float64
	if req.MonteCarlo.Iterations > 0 {
		if samples, err = s.simulate(run, req.MonteCarlo); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, costing.BuildFacts(run.Input, b, steps, samples, costing.RunMeta{
		RunDate:     s.now().UTC(),
		Project:     req.Project,
		Material:    req.Material,
		PriceSource: run.PriceSource,
	}))
}

type savedResponse struct {
	ID string `json:"id"`
	calculationResponse
	Summary *costing.Summary `json:"summary,omitempty"`
}

func (s *server) handleSaveCalculation(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	run, err := s.prepare(r.Context(), req.calculationRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if blocked := blockingError(run.Issues); blocked != nil {
		writeJSON(w, http.StatusUnprocessableEntity, blocked)
		return
	}

	resp, err := s.evaluate(run)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	calc := &store.Calculation{
		Project:   req.Project,
		CreatedAt: s.now().UTC(),
		Input:     run.Input,
		Breakdown: resp.Breakdown,
	}
	if req.MonteCarlo.Iterations > 0 {
		samples, err := s.simulate(run, req.MonteCarlo)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		summary := costing.Summarize(samples)
		calc.Summary = &summary
		calc.Samples = samples
	}

	if err := s.store.SaveCalculation(r.Context(), calc); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("calculation saved", logging.Calculation(calc.ID.String(), run.Input.Quantity)...)

	w.Header().Set("Location", "/calculations/"+calc.ID.String())
	writeJSON(w, http.StatusCreated, savedResponse{ID: calc.ID.String(), calculationResponse: resp, Summary: calc.Summary})
}

func (s *server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	catalogue, err := s.store.Materials(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	grades := make([]material.Grade, 0, len(catalogue))
	for _, name := range catalogue.Names() {
		grades = append(grades, catalogue[name])
	}
	writeJSON(w, http.StatusOK, grades)
}

type materialPriceRequest struct {
	Grade  string               `json:"grade"`
	Market material.PriceInputs `json:"market"`
	Shape  *material.Shape      `json:"shape,omitempty"`
}

type materialPriceResponse struct {
	Grade      string  `json:"grade"`
	PriceEURKg float64 `json:"price_eur_kg"`
	Source     string  `json:"source"`
	MassKg     float64 `json:"mass_kg,omitempty"`
	CostPiece  float64 `json:"cost_per_piece,omitempty"`
}

func (s *server) handleMaterialPrice(w http.ResponseWriter, r *http.Request) {
	var req materialPriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	catalogue, err := s.store.Materials(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	price, src, err := catalogue.Price(req.Grade, req.Market)
	if err != nil {
		s.writeError(w, r, unprocessable("%v", err))
		return
	}

	resp := materialPriceResponse{Grade: req.Grade, PriceEURKg: price, Source: src}
	if req.Shape != nil {
		shape := *req.Shape
		if shape.Family == "" {
			shape.Family = catalogue[req.Grade].Family
		}
		resp.MassKg = material.MassKg(shape)
		resp.CostPiece = resp.MassKg * price
	}
	writeJSON(w, http.StatusOK, resp)
}

const defaultExpiryWindowDays = 14

func (s *server) expiringQuotes(ctx context.Context, days int) ([]store.SupplierQuote, error) {
	return s.store.ExpiringQuotes(ctx, s.now(), time.Duration(days)*24*time.Hour)
}

func (s *server) handleExpiringQuotes(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiryWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, badRequest("days must be a non-negative integer"))
			return
		}
		days = n
	}

	quotes, err := s.expiringQuotes(r.Context(), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if quotes == nil {
		quotes = []store.SupplierQuote{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

type addQuoteRequest struct {
	Supplier   string  `json:"supplier"`
	Item       string  `json:"item"`
	UOM        string  `json:"uom"`
	Price      float64 `json:"price"`
	ValidUntil string  `json:"valid_until"`
	Notes      string  `json:"notes"`
}

func (s *server) handleAddQuote(w http.ResponseWriter, r *http.Request) {
	var req addQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	until, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		s.writeError(w, r, badRequest("valid_until must be YYYY-MM-DD"))
		return
	}
	if req.Price < 0 {
		s.writeError(w, r, badRequest("price must be >= 0"))
		return
	}
	if req.Supplier == "" || req.Item == "" {
		s.writeError(w, r, badRequest("supplier and item are required"))
		return
	}

	id, err := s.store.AddSupplierQuote(r.Context(), store.SupplierQuote{
		Supplier:   req.Supplier,
		Item:       req.Item,
		UOM:        req.UOM,
		Price:      req.Price,
		ValidUntil: until,
		Notes:      req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type derivedRateRequest struct {
	Machine *struct {
		Capex          float64 `json:"capex"`
		LifetimeYears  float64 `json:"lifetime_years"`
		Utilization    float64 `json:"utilization"`
		MaintenancePct float64 `json:"maintenance_pct"`
		EnergyPrice    float64 `json:"energy_price"`
		KWhPerHour     float64 `json:"kwh_per_hour"`
	} `json:"machine,omitempty"`
	Labor *struct {
		Hourly      float64 `json:"hourly"`
		OverheadPct float64 `json:"overhead_pct"`
		MarginPct   float64 `json:"margin_pct"`
	} `json:"labor,omitempty"`
}

type derivedRateResponse struct {
	MachineRate *float64 `json:"machine_rate_per_hour,omitempty"`
	LaborRate   *float64 `json:"labor_rate_per_hour,omitempty"`
}

// handleDeriveRates computes hourly rates from investment and wage figures.
func (s *server) handleDeriveRates(w http.ResponseWriter, r *http.Request) {
	var req derivedRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Machine == nil && req.Labor == nil {
		s.writeError(w, r, badRequest("machine or labor is required"))
		return
	}

	var resp derivedRateResponse
	if m := req.Machine; m != nil {
		if m.LifetimeYears <= 0 {
			s.writeError(w, r, badRequest("lifetime_years must be > 0"))
			return
		}
		rate := costing.MachineCostPerHour(m.Capex, m.LifetimeYears, m.Utilization, m.MaintenancePct, m.EnergyPrice, m.KWhPerHour)
		resp.MachineRate = &rate
	}
	if l := req.Labor; l != nil {
		rate := costing.LaborCostPerHour(l.Hourly, l.OverheadPct, l.MarginPct)
		resp.LaborRate = &rate
	}
	writeJSON(w, http.StatusOK, resp)
}

type priceRequest struct {
	calculationRequest
	Terms pricing.Terms `json:"terms"`
}

type priceResponse struct {
	Breakdown costing.CostBreakdown `json:"cost"`
	Price     pricing.Result        `json:"price"`
}

// handlePrice costs a run and applies commercial terms on top.
func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Terms.Validate(); err != nil {
		s.writeError(w, r, badRequest("%v", err))
		return
	}

	run, err := s.prepare(r.Context(), req.calculationRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if blocked := blockingError(run.Issues); blocked != nil {
		writeJSON(w, http.StatusUnprocessableEntity, blocked)
		return
	}

	b, err := costing.CostOnce(run.Input)
	metrics.RecordCalculation(err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	price, err := pricing.Calculate(b, run.Input.Quantity, req.Terms)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Breakdown: b, Price: price})
}
