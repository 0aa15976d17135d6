package main

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/preset"
	"github.com/Simplici0/costworks/internal/pricing"
	"github.com/Simplici0/costworks/internal/report"
	"github.com/Simplici0/costworks/internal/store"
)

type homeViewData struct {
	baseViewData
	ExpiringQuotes []store.SupplierQuote
}

type calculationsViewData struct {
	baseViewData
	Query        string
	Calculations []store.CalculationHeader
}

type calculationViewData struct {
	baseViewData
	Calculation store.Calculation
	Steps       []costing.StepCost
	Capacity    []costing.CapacityRow
}

type ratesViewData struct {
	baseViewData
	RateConfig   store.RateConfig
	MachineRates []store.MachineRate
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.expiringQuotes(r.Context(), defaultExpiryWindowDays)
	if err != nil {
		s.log.Error("load expiring quotes", zap.Error(err))
	}
	s.renderTemplate(w, http.StatusOK, "home.html", homeViewData{ExpiringQuotes: quotes})
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r, s.auth) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, http.StatusOK, "login.html", baseViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	valid, err := s.auth.validateCredentials(r.Context(), email, password)
	if err != nil {
		s.log.Error("validate credentials", zap.Error(err))
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		s.log.Warn("login failed", zap.String("email", email))
		s.renderTemplate(w, http.StatusUnauthorized, "login.html", baseViewData{ErrorMessage: "Invalid credentials. Please try again."})
		return
	}

	s.auth.setSessionCookie(w, email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) handleCalculationsList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	calcs, err := s.store.ListCalculations(r.Context(), store.ListFilter{Project: query})
	if err != nil {
		s.log.Error("list calculations", zap.Error(err))
		http.Error(w, "failed to load calculations", http.StatusInternalServerError)
		return
	}
	s.renderTemplate(w, http.StatusOK, "calculations.html", calculationsViewData{Query: query, Calculations: calcs})
}

// loadCalculation resolves the {id} URL parameter. It writes the error
// response itself and reports whether the caller may continue.
func (s *server) loadCalculation(w http.ResponseWriter, r *http.Request) (store.Calculation, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid calculation id", http.StatusBadRequest)
		return store.Calculation{}, false
	}

	calc, err := s.store.GetCalculation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return store.Calculation{}, false
	}
	if err != nil {
		s.log.Error("load calculation", zap.String("id", id.String()), zap.Error(err))
		http.Error(w, "failed to load calculation", http.StatusInternalServerError)
		return store.Calculation{}, false
	}
	return calc, true
}

func (s *server) handleCalculationDetail(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}

	steps, err := costing.StepCosts(calc.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	t, err := s.store.Tariffs(r.Context())
	if err != nil {
		s.log.Error("load tariffs", zap.Error(err))
		http.Error(w, "failed to load tariffs", http.StatusInternalServerError)
		return
	}
	capacity, err := costing.CapacityTable(calc.Input.Routing, calc.Input.Quantity, t.HoursPerDay, t.Capacity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.renderTemplate(w, http.StatusOK, "calculation.html", calculationViewData{
		Calculation: calc,
		Steps:       steps,
		Capacity:    capacity,
	})
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func (s *server) handleCalculationStepsCSV(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}
	steps, err := costing.StepCosts(calc.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteStepsCSV(&buf, steps); err != nil {
		s.log.Error("write steps csv", zap.Error(err))
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}
	attachment(w, "text/csv; charset=utf-8", "calculation-"+calc.ID.String()+".csv")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleCalculationSamplesCSV(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}
	if len(calc.Samples) == 0 {
		http.Error(w, "calculation has no Monte-Carlo samples", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteSamplesCSV(&buf, calc.Samples); err != nil {
		s.log.Error("write samples csv", zap.Error(err))
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}
	attachment(w, "text/csv; charset=utf-8", "samples-"+calc.ID.String()+".csv")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleCalculationQuote(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}
	steps, err := costing.StepCosts(calc.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	rc, err := s.store.RateConfig(r.Context())
	if err != nil {
		s.log.Error("load rate config", zap.Error(err))
		http.Error(w, "failed to load rate config", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	lead := 4
	if raw := q.Get("lead_weeks"); raw != "" {
		if lead, err = strconv.Atoi(raw); err != nil || lead < 1 {
			http.Error(w, "lead_weeks must be a positive integer", http.StatusBadRequest)
			return
		}
	}
	code := q.Get("code")
	if code == "" {
		code = calc.ID.String()[:8]
	}
	terms, priced, err := parsePricingTerms(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var price *pricing.Result
	if priced {
		res, err := pricing.Calculate(calc.Breakdown, calc.Input.Quantity, terms)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		price = &res
	}

	var buf bytes.Buffer
	if err := report.WriteQuote(&buf, report.Quote{
		Client:      q.Get("client"),
		Contact:     q.Get("contact"),
		Email:       q.Get("email"),
		ProjectCode: code,
		Project:     calc.Project,
		Date:        s.now(),
		LeadWeeks:   lead,
		Currency:    rc.Currency,
		Quantity:    calc.Input.Quantity,
		Breakdown:   calc.Breakdown,
		Steps:       steps,
		Summary:     calc.Summary,
		Pricing:     price,
	}); err != nil {
		s.log.Error("render quote", zap.Error(err))
		http.Error(w, "failed to render quote", http.StatusInternalServerError)
		return
	}
	attachment(w, "text/markdown; charset=utf-8", "quote-"+code+".md")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handlePresetExport(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}
	format, err := preset.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := preset.FromInput(calc.Project, r.URL.Query().Get("material"), "", calc.Input, calc.CreatedAt)
	var buf bytes.Buffer
	if err := preset.Encode(&buf, snap, format); err != nil {
		s.log.Error("encode preset", zap.Error(err))
		http.Error(w, "failed to export preset", http.StatusInternalServerError)
		return
	}

	contentType := "application/json"
	if format == preset.FormatYAML {
		contentType = "application/yaml"
	}
	attachment(w, contentType, "preset-"+calc.ID.String()+"."+string(format))
	_, _ = w.Write(buf.Bytes())
}

// handlePresetImport costs an uploaded snapshot. The format comes from
// ?format=, then the filename query parameter, then the Content-Type.
func (s *server) handlePresetImport(w http.ResponseWriter, r *http.Request) {
	format, err := presetFormat(r)
	if err != nil {
		s.writeError(w, r, badRequest("%v", err))
		return
	}

	snap, err := preset.Decode(http.MaxBytesReader(w, r.Body, 4<<20), format)
	if err != nil {
		s.writeError(w, r, badRequest("%v", err))
		return
	}
	if err := snap.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.store.Tariffs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	run := preparedRun{Input: snap.Input(t.Rates), Tariffs: t, PriceSource: snap.PriceSource}
	resp, err := s.evaluate(run)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func presetFormat(r *http.Request) (preset.Format, error) {
	q := r.URL.Query()
	if f := q.Get("format"); f != "" {
		return preset.ParseFormat(f)
	}
	if name := q.Get("filename"); name != "" {
		return preset.FormatFromFilename(name)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return preset.FormatYAML, nil
	}
	return preset.FormatJSON, nil
}

func (s *server) handleAdminRatesForm(w http.ResponseWriter, r *http.Request) {
	s.renderRates(w, r, http.StatusOK, baseViewData{})
}

func (s *server) renderRates(w http.ResponseWriter, r *http.Request, status int, base baseViewData) {
	rc, err := s.store.RateConfig(r.Context())
	if err != nil {
		s.log.Error("load rate config", zap.Error(err))
		http.Error(w, "failed to load rate config", http.StatusInternalServerError)
		return
	}
	machines, err := s.store.MachineRates(r.Context())
	if err != nil {
		s.log.Error("load machine rates", zap.Error(err))
		http.Error(w, "failed to load machine rates", http.StatusInternalServerError)
		return
	}
	s.renderTemplate(w, status, "admin_rates.html", ratesViewData{baseViewData: base, RateConfig: rc, MachineRates: machines})
}

func (s *server) handleAdminRatesSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rc, err := parseRateConfigForm(r)
	if err != nil {
		s.renderRates(w, r, http.StatusBadRequest, baseViewData{ErrorMessage: err.Error()})
		return
	}
	if err := s.store.UpdateRateConfig(r.Context(), rc); err != nil {
		s.log.Error("update rate config", zap.Error(err))
		http.Error(w, "failed to save rate config", http.StatusInternalServerError)
		return
	}
	s.log.Info("rate config updated", zap.Float64("labor_rate", rc.LaborRate), zap.Float64("energy_price", rc.EnergyPrice))
	s.renderRates(w, r, http.StatusOK, baseViewData{SuccessMessage: "Rates saved."})
}

func (s *server) handleAdminMachineSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	m, err := parseMachineRateForm(r)
	if err != nil {
		s.renderRates(w, r, http.StatusBadRequest, baseViewData{ErrorMessage: err.Error()})
		return
	}
	if err := s.store.UpsertMachineRate(r.Context(), m); err != nil {
		s.log.Error("upsert machine rate", zap.Error(err))
		http.Error(w, "failed to save machine rate", http.StatusInternalServerError)
		return
	}
	s.log.Info("machine rate saved", zap.String("process", m.Process), zap.Float64("rate_per_hour", m.RatePerHour))
	http.Redirect(w, r, "/admin/rates", http.StatusSeeOther)
}
