// Package api provides HTTP and WebSocket API endpoints for the rate feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/fx"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
	"github.com/OHMS-DeAI/ratefeed/pkg/logging"
	"github.com/OHMS-DeAI/ratefeed/pkg/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	addr     string
	engine   *feed.Engine
	fxsvc    *fx.Service
	server   *http.Server
	logger   *logging.Logger
	wsServer *WebSocketServer // Optional WebSocket server for streaming
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, engine *feed.Engine, fxsvc *fx.Service, logger *logging.Logger) *Server {
	return &Server{
		addr:   addr,
		engine: engine,
		fxsvc:  fxsvc,
		logger: logger,
	}
}

// SetWebSocketServer sets the WebSocket server for streaming updates.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.wsServer = ws
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler returns the route mux. It can be mounted without starting a
// listener, which is how tests drive the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/history", s.handleHistory)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/convert", s.handleConvert)
	mux.HandleFunc("/v1/refresh", s.handleRefresh)
	return mux
}

// priceResponse is the /v1/price payload.
type priceResponse struct {
	Record sources.PriceRecord `json:"record"`
	Stale  bool                `json:"stale"`
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePrice handles /v1/price.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	rec, ok := s.engine.Latest()
	if !ok {
		status = "404"
		http.Error(w, "no price available yet", http.StatusNotFound)
		return
	}

	s.sendJSON(w, priceResponse{Record: rec, Stale: s.engine.IsStale()})
}

// handleHistory handles /v1/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, "200", time.Since(start))
	}()

	s.sendJSON(w, s.engine.History())
}

// handleStats handles /v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, "200", time.Since(start))
	}()

	s.sendJSON(w, fx.Summarize(s.engine.History()))
}

// handleConvert handles /v1/convert?amount=...&direction=quote_to_base|base_to_quote.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		status = "400"
		http.Error(w, "amount must be a decimal", http.StatusBadRequest)
		return
	}

	var result fx.Conversion
	switch r.URL.Query().Get("direction") {
	case "", "quote_to_base":
		result = s.fxsvc.QuoteToBase(amount)
	case "base_to_quote":
		result = s.fxsvc.BaseToQuote(amount)
	default:
		status = "400"
		http.Error(w, "direction must be quote_to_base or base_to_quote", http.StatusBadRequest)
		return
	}

	s.sendJSON(w, result)
}

// handleRefresh handles POST /v1/refresh with optional ?source= override.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		status = "405"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var (
		rec sources.PriceRecord
		err error
	)
	if name := r.URL.Query().Get("source"); name != "" {
		rec, err = s.engine.RefreshSource(ctx, name)
	} else {
		rec, err = s.engine.Refresh(ctx, true)
	}
	if err != nil {
		if errors.Is(err, sources.ErrUnknownSource) {
			status = "400"
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = "503"
		s.logger.Error("Forced refresh failed", "error", err.Error())
		http.Error(w, "refresh unavailable", http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, rec)
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
