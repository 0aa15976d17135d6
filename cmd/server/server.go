package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/metrics"
	"github.com/Simplici0/costworks/internal/store"
	"github.com/Simplici0/costworks/web"
)

type serverOptions struct {
	SessionSecret string
	MCWorkers     int
	MaxIterations int
	SecureCookies bool
}

type server struct {
	auth  *authService
	store *store.Store
	log   *zap.Logger
	opts  serverOptions
	pages map[string]*template.Template
	now   func() time.Time
}

var pageNames = []string{"login.html", "home.html", "calculations.html", "calculation.html", "admin_rates.html"}

var templateFuncs = template.FuncMap{
	"money":    func(v float64) string { return humanize.FormatFloat("#,###.##", v) },
	"qty":      func(n int) string { return humanize.Comma(int64(n)) },
	"date":     func(t time.Time) string { return t.Format("2006-01-02") },
	"datetime": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"pct": func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "n/a"
		}
		return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
	},
}

func newServer(st *store.Store, log *zap.Logger, opts serverOptions) (*server, error) {
	if opts.MCWorkers < 1 {
		opts.MCWorkers = 1
	}
	if opts.MaxIterations < 1 || opts.MaxIterations > costing.MaxIterations {
		opts.MaxIterations = costing.MaxIterations
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, page := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(web.Templates, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		pages[page] = t
	}

	return &server{
		auth:  newAuthService(st, opts.SessionSecret, opts.SecureCookies),
		store: st,
		log:   log,
		opts:  opts,
		pages: pages,
		now:   time.Now,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware)

	static, _ := fs.Sub(web.Static, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Post("/calculate", s.handleCalculate)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/capacity", s.handleCapacity)
		r.Post("/audit", s.handleAudit)
		r.Post("/scenarios", s.handleScenarios)
		r.Post("/facts", s.handleFacts)
		r.Post("/calculations", s.handleSaveCalculation)
		r.Get("/materials", s.handleMaterials)
		r.Post("/materials/price", s.handleMaterialPrice)
		r.Get("/quotes/expiring", s.handleExpiringQuotes)
		r.Post("/quotes", s.handleAddQuote)
		r.Post("/rates/derive", s.handleDeriveRates)
		r.Post("/price", s.handlePrice)
	})

	r.Get("/calculations", s.handleCalculationsList)
	r.Get("/calculations/{id}", s.handleCalculationDetail)
	r.Get("/calculations/{id}/export.csv", s.handleCalculationStepsCSV)
	r.Get("/calculations/{id}/quote.md", s.handleCalculationQuote)
	r.Get("/calculations/{id}/samples.csv", s.handleCalculationSamplesCSV)

	r.Get("/presets/{id}", s.handlePresetExport)
	r.Post("/presets", s.handlePresetImport)

	r.Get("/admin/rates", s.handleAdminRatesForm)
	r.Post("/admin/rates", s.handleAdminRatesSubmit)
	r.Post("/admin/machines", s.handleAdminMachineSubmit)

	return r
}

// requestLogger logs every request with zap and records its metrics under
// the matched route pattern.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), d)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", d),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if status >= http.StatusInternalServerError {
			s.log.Error("request", fields...)
			return
		}
		s.log.Debug("request", fields...)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.log.Error("render template", zap.String("page", page), zap.Error(err))
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Issues any    `json:"issues,omitempty"`
}

// requestError carries an HTTP status for errors caused by the request.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func unprocessable(format string, args ...any) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

func statusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return re.status
	case errors.Is(err, costing.ErrInvalidQuantity), errors.Is(err, costing.ErrTooManyIterations),
		errors.Is(err, costing.ErrInvalidParams):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON encodes v before writing so a non-finite result becomes a 422
// instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		var uv *json.UnsupportedValueError
		if errors.As(err, &uv) {
			status = http.StatusUnprocessableEntity
			body, _ = json.Marshal(errorResponse{Error: "result is not finite; check scrap rates and quantities"})
		} else {
			status = http.StatusInternalServerError
			body, _ = json.Marshal(errorResponse{Error: "encode response"})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
