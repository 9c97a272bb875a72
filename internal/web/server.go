// Package web exposes the HTTP surface: the dashboard page, SSE streams
// over the audit logs and live runs, the strategy registry API and the
// bias webhook.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/analytics"
	"github.com/polypulse/engine/internal/domain"
	"github.com/polypulse/engine/internal/services/engine"
	"github.com/polypulse/engine/internal/storage/strategies"
)

const (
	logPollInterval   = 2 * time.Second
	heartbeatInterval = 30 * time.Second
	maxWebhookBody    = 64 << 10
)

type signalRowReader interface {
	RowsAfter(index uint64) ([]domain.SignalRowRecord, error)
}

type tradeRowReader interface {
	RowsAfter(index uint64) ([]domain.TradeRecordRecord, error)
}

type strategyStore interface {
	List() (strategies.Registry, error)
	Add(cfg domain.StrategyConfig) (domain.StrategyConfig, error)
	SetActive(id string) (strategies.Registry, error)
}

type biasSink interface {
	Append(sig domain.BiasSignal) error
}

type dashboardSource interface {
	Compute() (analytics.Dashboard, error)
}

type runner interface {
	Run(ctx context.Context, params engine.RunParams) (engine.Summary, error)
	RunSimulations(ctx context.Context, observer domain.Observer) ([]engine.Summary, error)
}

// Server exposes the HTTP endpoints. One run or simulation executes at a
// time; concurrent requests get 409.
type Server struct {
	Addr          string
	Runner        runner
	Signals       signalRowReader
	Trades        tradeRowReader
	Strategies    strategyStore
	Bias          biasSink
	Dashboard     dashboardSource
	RunDefaults   engine.RunParams
	WebhookSecret string
	Logger        *zap.Logger

	busy atomic.Bool
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/signals/stream", s.handleSignalStream)
	mux.HandleFunc("/trades/stream", s.handleTradeStream)
	mux.HandleFunc("/run/stream", s.handleRunStream)
	mux.HandleFunc("/simulate/stream", s.handleSimulateStream)
	mux.HandleFunc("/api/strategies", s.handleStrategies)
	mux.HandleFunc("/api/strategies/active", s.handleSetActive)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/webhook/bias", s.handleBiasWebhook)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// handleSignalStream tails the signal audit log over SSE.
func (s *Server) handleSignalStream(w http.ResponseWriter, r *http.Request) {
	s.tailStream(w, r, "signal", func(lastIndex uint64, send func(index uint64, payload any) error) error {
		records, err := s.Signals.RowsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := send(record.Index, record.Row); err != nil {
				return err
			}
		}
		return nil
	})
}

// handleTradeStream tails the trade audit log over SSE.
func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	s.tailStream(w, r, "trade", func(lastIndex uint64, send func(index uint64, payload any) error) error {
		records, err := s.Trades.RowsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := send(record.Index, record.Row); err != nil {
				return err
			}
		}
		return nil
	})
}

// tailStream polls a WAL reader and forwards new rows as SSE events, with a
// comment heartbeat so proxies keep the connection.
func (s *Server) tailStream(w http.ResponseWriter, r *http.Request, event string,
	poll func(lastIndex uint64, send func(index uint64, payload any) error) error) {

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sseHeaders(w)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	pollTicker := time.NewTicker(logPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	send := func(index uint64, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "event: %s\n", event)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		lastIndex = index
		return nil
	}

	if err := poll(lastIndex, send); err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		s.Logger.Error("stream initial load", zap.String("event", event), zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := poll(lastIndex, send); err != nil {
				s.Logger.Warn("stream poll", zap.String("event", event), zap.Error(err))
			}
		}
	}
}

// handleRunStream executes one session and streams its progress events.
// Query params: profile, bankroll, cycles.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sseHeaders(w)

	params := s.RunDefaults
	q := r.URL.Query()
	if v := q.Get("profile"); v != "" {
		params.Profile = v
	}
	if v := q.Get("bankroll"); v != "" {
		if bankroll, err := decimal.NewFromString(v); err == nil && bankroll.IsPositive() {
			params.Bankroll = bankroll
			params.Risk = engine.DefaultRisk(bankroll)
		}
	}
	if v := q.Get("cycles"); v != "" {
		if cycles, err := strconv.Atoi(v); err == nil && cycles > 0 {
			params.MaxCycles = cycles
		}
	}
	params.Observer = sseObserver(w, flusher)

	summary, err := s.Runner.Run(r.Context(), params)
	if err != nil {
		s.Logger.Error("run stream", zap.Error(err))
		emitSSE(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}
	emitSSE(w, flusher, "summary", summary)
}

// handleSimulateStream runs the standard bankroll tiers and streams progress.
func (s *Server) handleSimulateStream(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sseHeaders(w)

	summaries, err := s.Runner.RunSimulations(r.Context(), sseObserver(w, flusher))
	if err != nil {
		s.Logger.Error("simulate stream", zap.Error(err))
		emitSSE(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}
	emitSSE(w, flusher, "summary", summaries)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reg, err := s.Strategies.List()
		if err != nil {
			s.fail(w, err, "list strategies")
			return
		}
		writeJSON(w, http.StatusOK, reg)
	case http.MethodPost:
		var cfg domain.StrategyConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid strategy payload", http.StatusBadRequest)
			return
		}
		added, err := s.Strategies.Add(cfg)
		if err != nil {
			s.fail(w, err, "add strategy")
			return
		}
		writeJSON(w, http.StatusOK, added)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "strategy id required", http.StatusBadRequest)
		return
	}

	reg, err := s.Strategies.SetActive(req.ID)
	if err != nil {
		if errors.Is(err, strategies.ErrUnknownStrategy) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.fail(w, err, "set active strategy")
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	dashboard, err := s.Dashboard.Compute()
	if err != nil {
		s.fail(w, err, "compute dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// handleBiasWebhook accepts external directional signals. When a shared
// secret is configured, submissions must carry it in the X-Signal-Secret
// header or a "secret" body field.
func (s *Server) handleBiasWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var sub struct {
		domain.BiasSubmission
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if s.WebhookSecret != "" {
		provided := r.Header.Get("X-Signal-Secret")
		if provided == "" {
			provided = sub.Secret
		}
		if provided != s.WebhookSecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	sig := domain.NormalizeBias(sub.BiasSubmission, raw, "webhook", time.Now().UTC())
	if sig.Symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}

	if err := s.Bias.Append(sig); err != nil {
		s.fail(w, err, "store bias signal")
		return
	}

	s.Logger.Info("bias signal accepted",
		zap.String("symbol", sig.Symbol),
		zap.String("side", sig.Side),
		zap.Float64("confidence", sig.Confidence))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stored": sig})
}

func (s *Server) fail(w http.ResponseWriter, err error, msg string) {
	s.Logger.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// sseObserver forwards progress events to the response. The engine invokes
// the observer synchronously, so no locking is needed here.
func sseObserver(w http.ResponseWriter, flusher http.Flusher) domain.Observer {
	return func(event domain.ProgressEvent) {
		emitSSE(w, flusher, "progress", event)
	}
}

func emitSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
