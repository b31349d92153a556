// Package web serves the dashboard page and its JSON API.
//
// The page is a thin shell: buttons POST commands, the engine runs the
// loops server-side, and status lines and chart data come back over the
// WebSocket hub.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atmx/betting-dashboard/internal/chart"
	"github.com/atmx/betting-dashboard/internal/codec"
	"github.com/atmx/betting-dashboard/internal/engine"
	"github.com/atmx/betting-dashboard/internal/hub"
	"github.com/atmx/betting-dashboard/internal/metrics"
	"github.com/atmx/betting-dashboard/internal/model"
	"github.com/atmx/betting-dashboard/internal/watcher"
)

// Options wires a Server. Engine, Board and Charts are required.
type Options struct {
	Engine      *engine.Engine
	Board       *StatusBoard
	Charts      *chart.Recorder
	Hub         *hub.Hub
	Watcher     *watcher.Local
	CookieName  string
	WatchNodeID string
	// AllowedOrigins lists the foreign origins allowed to call the API.
	// Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	engine     *engine.Engine
	board      *StatusBoard
	charts     *chart.Recorder
	hub        *hub.Hub
	watcher    *watcher.Local
	cookieName string
	watchNode  string
	origins    []string
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates the handler set.
func NewServer(opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = codec.DefaultCookieName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Board == nil {
		opts.Board = NewStatusBoard(nil)
	}
	if opts.Charts == nil {
		opts.Charts = chart.NewRecorder()
	}
	return &Server{
		engine:     opts.Engine,
		board:      opts.Board,
		charts:     opts.Charts,
		hub:        opts.Hub,
		watcher:    opts.Watcher,
		cookieName: opts.CookieName,
		watchNode:  opts.WatchNodeID,
		origins:    opts.AllowedOrigins,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Router builds the full router with middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	// An empty list would make cors allow every origin.
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           60 * 15,
		}))
	}
	r.Use(s.originGuard)

	r.Get("/", s.Index)
	r.Get("/health", s.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api/v1", s.Routes)
	return r
}

// Routes mounts the API under an existing router.
func (s *Server) Routes(r chi.Router) {
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	r.Get("/state", s.GetState)
	r.Get("/charts", s.GetCharts)
	r.Get("/status", s.GetStatus)

	r.Post("/autoroll/start", s.StartAutoRoll)
	r.Post("/autoroll/stop", s.StopAutoRoll)
	r.Post("/multiply/start", s.StartMultiply)
	r.Post("/multiply/stop", s.StopMultiply)
	r.Post("/reset", s.Reset)

	r.Post("/observe/{nodeID}", s.Observe)
}

// --- Response types ---

// CommandResponse is returned by every command endpoint.
type CommandResponse struct {
	Changed bool               `json:"changed"`
	State   model.BettingState `json:"state"`
	Loops   engine.Snapshot    `json:"loops"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Loops   engine.Snapshot   `json:"loops"`
	Regions map[string]string `json:"regions"`
}

// ObserveResponse is the body of POST /api/v1/observe/{nodeID}.
type ObserveResponse struct {
	Node      string `json:"node"`
	Added     int    `json:"added"`
	Delivered int    `json:"delivered"`
}

// --- Handlers ---

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "betting-dashboard"})
}

// GetState handles GET /api/v1/state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Store().Get())
}

// GetCharts handles GET /api/v1/charts.
func (s *Server) GetCharts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.charts.Last())
}

// GetStatus handles GET /api/v1/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Loops:   s.engine.Status(),
		Regions: s.board.All(),
	})
}

// StartAutoRoll handles POST /api/v1/autoroll/start.
func (s *Server) StartAutoRoll(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.engine.StartAutoRoll(), s.engine.Store().Get())
}

// StopAutoRoll handles POST /api/v1/autoroll/stop.
func (s *Server) StopAutoRoll(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.engine.StopAutoRoll(), s.engine.Store().Get())
}

// StartMultiply handles POST /api/v1/multiply/start. The inputs come from
// a form or a JSON body; anything unparseable falls back to the defaults.
func (s *Server) StartMultiply(w http.ResponseWriter, r *http.Request) {
	baseBet, odds := multiplyInputs(r)
	p := engine.ParseParams(baseBet, odds)
	s.respond(w, s.engine.StartMultiply(p), s.engine.Store().Get())
}

// StopMultiply handles POST /api/v1/multiply/stop.
func (s *Server) StopMultiply(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.engine.StopMultiply(), s.engine.Store().Get())
}

// Reset handles POST /api/v1/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.respond(w, true, s.engine.Reset())
}

// Observe handles POST /api/v1/observe/{nodeID}, sent by the page's
// MutationObserver when the watched node gains children.
func (s *Server) Observe(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if s.watcher == nil {
		writeError(w, "watcher not enabled", http.StatusNotFound)
		return
	}

	added := 1
	if v := r.URL.Query().Get("added"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, "added must be an integer", http.StatusBadRequest)
			return
		}
		added = n
	} else if r.ContentLength > 0 {
		var body struct {
			Added *int `json:"added"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if body.Added != nil {
			added = *body.Added
		}
	}

	delivered := s.watcher.Notify(nodeID, added)
	writeJSON(w, http.StatusAccepted, ObserveResponse{Node: nodeID, Added: added, Delivered: delivered})
}

// originGuard refuses state-changing requests whose Origin is neither
// this host nor listed in AllowedOrigins.
func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" && !s.originAllowed(r, origin) {
			s.logger.Warn("cross-origin request refused", "origin", origin, "path", r.URL.Path)
			writeError(w, "origin not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(r *http.Request, origin string) bool {
	if u, err := url.Parse(origin); err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// respond writes the command result, refreshes the state cookie and tells
// other open pages about the new state.
func (s *Server) respond(w http.ResponseWriter, changed bool, st model.BettingState) {
	http.SetCookie(w, codec.Cookie(s.cookieName, st, s.now()))
	if s.hub != nil {
		s.hub.Broadcast(hub.Message{Type: hub.TypeState, Data: st})
	}
	writeJSON(w, http.StatusOK, CommandResponse{
		Changed: changed,
		State:   st,
		Loops:   s.engine.Status(),
	})
}

// importCookie adopts a state carried by the browser when the service has
// nothing better. It reports whether the cookie was used.
func (s *Server) importCookie(r *http.Request) bool {
	st, ok := codec.FromRequest(r, s.cookieName)
	if !ok {
		return false
	}
	if !s.engine.Store().Get().IsDefault() || st.IsDefault() {
		return false
	}
	s.engine.Restore(st)
	s.logger.Info("state imported from cookie", "bets", st.Multiply.Bets)
	return true
}

func multiplyInputs(r *http.Request) (baseBet, odds string) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			BaseBet json.RawMessage `json:"base_bet"`
			Odds    json.RawMessage `json:"odds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", ""
		}
		return rawValue(body.BaseBet), rawValue(body.Odds)
	}
	if err := r.ParseForm(); err != nil {
		return "", ""
	}
	return r.FormValue("base_bet"), r.FormValue("odds")
}

// rawValue accepts both "0.001" and 0.001.
func rawValue(m json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(m)), `"`)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
