package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/scheduler"
	"CoinSentinel/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the rule store, the last cycle and the alert history over
// HTTP, plus the WebSocket hub and Prometheus metrics.
type Server struct {
	Store     *store.Manager
	History   *store.History
	Scheduler *scheduler.Scheduler
	Collector *collector.Collector
	Hub       *Hub
	Metrics   *metrics.Metrics

	router *mux.Router
}

func New(st *store.Manager, hist *store.History, sched *scheduler.Scheduler, col *collector.Collector, hub *Hub, m *metrics.Metrics) *Server {
	s := &Server{Store: st, History: hist, Scheduler: sched, Collector: col, Hub: hub, Metrics: m}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(cors)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/rows", s.handleRows).Methods(http.MethodGet)
	api.HandleFunc("/symbols", s.handleListSymbols).Methods(http.MethodGet)
	api.HandleFunc("/symbols", s.handleAddSymbol).Methods(http.MethodPost)
	api.HandleFunc("/symbols/{symbol}", s.handleRemoveSymbol).Methods(http.MethodDelete)
	api.HandleFunc("/symbols/{symbol}/rules", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/symbols/{symbol}/rules", s.handleAddRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", s.handleEditRule).Methods(http.MethodPut)
	api.HandleFunc("/rules/{id}", s.handleRemoveRule).Methods(http.MethodDelete)
	api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	api.HandleFunc("/interval", s.handleGetInterval).Methods(http.MethodGet)
	api.HandleFunc("/interval", s.handleSetInterval).Methods(http.MethodPut)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/universe", s.handleUniverse).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handlePendingAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/ack", s.handleAck).Methods(http.MethodPost)

	if s.Hub != nil {
		r.HandleFunc("/ws", s.Hub.ServeWS)
	}
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	zap.L().Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

// writeError maps store errors to status codes. A persistence failure means
// the change is live in memory but not on disk; the client is told so.
func writeError(w http.ResponseWriter, err error) {
	var perr *model.PersistenceError
	switch {
	case errors.As(err, &perr):
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   err.Error(),
			"applied": true,
			"warning": "change applied but could not be saved; it will be lost on restart",
		})
	case errors.Is(err, store.ErrSymbolNotFound), errors.Is(err, store.ErrRuleNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicateSymbol):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidSymbol), errors.Is(err, store.ErrInvalidRule), errors.Is(err, store.ErrInvalidInterval):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":   "ok",
		"symbols":  len(s.Store.Symbols()),
		"universe": s.Collector.Universe().Len(),
	}
	if s.Scheduler != nil {
		resp["intervalSeconds"] = int(s.Scheduler.Interval() / time.Second)
		if last := s.Scheduler.LastCycle(); !last.IsZero() {
			resp["lastCycle"] = last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	rows := []model.DisplayRow{}
	if s.Scheduler != nil {
		rows = s.Scheduler.Rows()
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Store.Snapshot())
}

func (s *Server) handleAddSymbol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if u := s.Collector.Universe(); u.Len() > 0 {
		if _, ok := u.Resolve(req.Symbol); !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown symbol: " + req.Symbol})
			return
		}
	}
	if err := s.Store.AddSymbol(req.Symbol); err != nil {
		writeError(w, err)
		return
	}
	s.triggerSync()
	writeJSON(w, http.StatusCreated, map[string]string{"symbol": req.Symbol})
}

func (s *Server) handleRemoveSymbol(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.RemoveSymbol(mux.Vars(r)["symbol"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Store.Rules(mux.Vars(r)["symbol"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule model.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	stored, err := s.Store.AddRule(mux.Vars(r)["symbol"], rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleEditRule(w http.ResponseWriter, r *http.Request) {
	var rule model.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	stored, err := s.Store.EditRule(mux.Vars(r)["id"], rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.RemoveRule(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.triggerSync()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) triggerSync() {
	if s.Scheduler != nil {
		s.Scheduler.TriggerNow()
	}
}

func (s *Server) handleGetInterval(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seconds": s.Store.Interval(),
		"allowed": store.AllowedIntervals,
	})
}

// handleSetInterval persists the interval, restarts the timer and forces an
// immediate cycle.
func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	err := s.Store.SetInterval(req.Seconds)
	var perr *model.PersistenceError
	if err != nil && !errors.As(err, &perr) {
		writeError(w, err)
		return
	}
	if s.Scheduler != nil {
		if rerr := s.Scheduler.Reschedule(req.Seconds); rerr != nil {
			writeError(w, rerr)
			return
		}
		s.Scheduler.TriggerNow()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seconds": req.Seconds})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records := s.History.List()
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n < len(records) {
		records = records[:n]
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	found := s.Collector.Universe().Search(r.URL.Query().Get("q"), limit)
	if found == nil {
		found = []model.Symbol{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handlePendingAlerts(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.Hub.Pending())
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil || !s.Hub.Ack(mux.Vars(r)["id"]) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending alert with that id"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
