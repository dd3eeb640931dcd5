// Package dashboard serves the latest analysis over HTTP: a single page
// with charts plus the JSON endpoints behind it.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"TokenTracker/internal/analysis"
	"TokenTracker/internal/metrics"
	"TokenTracker/internal/model"
	"TokenTracker/internal/recorder"
	"TokenTracker/internal/report"
)

//go:embed static
var staticFiles embed.FS

const defaultRunsLimit = 20

// Server is the dashboard HTTP server.
type Server struct {
	runner    *analysis.Runner
	writer    *report.Writer
	chartsDir string
	defaults  analysis.Options

	addr        string
	corsOrigins []string
	router      *mux.Router
	handler     http.Handler
}

// NewServer wires the dashboard routes. Reports written by earlier processes
// are read through writer when the runner has no result yet.
func NewServer(addr string, corsOrigins []string, runner *analysis.Runner, writer *report.Writer, chartsDir string, defaults analysis.Options) *Server {
	s := &Server{
		runner:      runner,
		writer:      writer,
		chartsDir:   chartsDir,
		defaults:    defaults,
		addr:        addr,
		corsOrigins: corsOrigins,
	}

	router := mux.NewRouter()
	router.Use(metrics.PrometheusMiddleware)
	router.HandleFunc("/", s.index).Methods("GET")
	router.HandleFunc("/healthz", s.health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/api/report", s.getReport).Methods("GET")
	router.HandleFunc("/api/market", s.getMarket).Methods("GET")
	router.HandleFunc("/api/spikes", s.getSpikes).Methods("GET")
	router.HandleFunc("/api/runs", s.getRuns).Methods("GET")
	router.HandleFunc("/api/refresh", s.refresh).Methods("POST")
	router.HandleFunc("/charts/{name}", s.getChart).Methods("GET")
	s.router = router

	origins := corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(router)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// EnsureData runs an analysis when neither the runner nor the report
// directory has one.
func (s *Server) EnsureData(ctx context.Context) error {
	if s.runner.Latest() != nil {
		return nil
	}
	if _, err := report.LoadDocument(s.writer.JSONReportPath()); err == nil {
		return nil
	} else if !errors.Is(err, report.ErrNoReport) {
		return err
	}
	log.Info().Msg("no analysis data found, running analysis first")
	_, err := s.runner.Run(ctx, s.defaults)
	return err
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("dashboard listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	return nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(staticFiles, "static/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "token": s.runner.Token()}
	if latest := s.runner.Latest(); latest != nil {
		body["last_run"] = latest.StartedAt
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document()
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	var records []model.DailyRecord
	if latest := s.runner.Latest(); latest != nil {
		records = latest.Records
	} else {
		var err error
		if records, err = report.LoadMarketData(s.writer.MarketDataPath()); err != nil {
			s.writeLoadError(w, err)
			return
		}
	}
	if records == nil {
		records = []model.DailyRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getSpikes(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document()
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	spikes := doc.Spikes
	if spikes == nil {
		spikes = []model.SpikeEvent{}
	}
	writeJSON(w, http.StatusOK, spikes)
}

func (s *Server) getRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.runner.Recorder().RecentRuns(limit)
	if err != nil {
		log.Error().Err(err).Msg("load run history")
		http.Error(w, "error loading run history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []recorder.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// refreshRequest optionally overrides the default run options.
type refreshRequest struct {
	Days            *int     `json:"days"`
	PriceThreshold  *float64 `json:"price_threshold"`
	VolumeThreshold *float64 `json:"volume_threshold"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	opts := s.defaults
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid refresh request", http.StatusBadRequest)
		return
	}
	if req.Days != nil {
		opts.Days = *req.Days
	}
	if req.PriceThreshold != nil {
		opts.Thresholds.Price = *req.PriceThreshold
	}
	if req.VolumeThreshold != nil {
		opts.Thresholds.Volume = *req.VolumeThreshold
	}
	if opts.Days <= 0 || opts.Thresholds.Price <= 0 || opts.Thresholds.Volume <= 0 {
		http.Error(w, "days and thresholds must be positive", http.StatusBadRequest)
		return
	}

	res, err := s.runner.Run(r.Context(), opts)
	switch {
	case errors.Is(err, analysis.ErrNoData):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res.Document)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	token := s.runner.Token()
	switch name {
	case token + "_market_analysis.png", token + "_spike_distribution.png":
	default:
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.chartsDir, name))
}

func (s *Server) document() (*report.Document, error) {
	if latest := s.runner.Latest(); latest != nil {
		return latest.Document, nil
	}
	return report.LoadDocument(s.writer.JSONReportPath())
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, report.ErrNoReport) {
		http.Error(w, "no analysis available yet", http.StatusNotFound)
		return
	}
	log.Error().Err(err).Msg("load analysis")
	http.Error(w, "error loading analysis", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
