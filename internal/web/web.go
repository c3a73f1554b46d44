package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostingrelay/internal/config"
	"hostingrelay/internal/httpx"
	"hostingrelay/internal/ics"
	appLog "hostingrelay/internal/log"
	"hostingrelay/internal/probe"
	"hostingrelay/internal/relay"
	"hostingrelay/internal/version"
)

const (
	mimeCalendar       = "text/calendar; charset=utf-8"
	mimeProblemJSON    = "application/problem+json"
	mimePlainText      = "text/plain; charset=utf-8"
	cacheControl       = "private"
	contentDisposition = "inline; filename=hosting.ics"

	typePathParam = "type"
)

// Relayer is what the front door needs from the relay core.
type Relayer interface {
	GetRelay(ctx context.Context, key string) (string, error)
	Preview(ctx context.Context, key string, cfg ics.ExpandConfig) (ics.ExpandResult, error)
}

// StatusReporter exposes the latest upstream probe results.
type StatusReporter interface {
	Statuses() []probe.Status
}

// Server maps HTTP requests onto the relay. It owns no relay logic: it picks
// the source key out of the path and turns results into responses.
type Server struct {
	cfg       *config.Config
	relay     Relayer
	probes    StatusReporter
	telemetry *httpx.Telemetry
	router    *mux.Router
}

// NewServer constructs a new Server. probes and telemetry may be nil.
func NewServer(cfg *config.Config, relayer Relayer, probes StatusReporter, telemetry *httpx.Telemetry) *Server {
	s := &Server{
		cfg:       cfg,
		relay:     relayer,
		probes:    probes,
		telemetry: telemetry,
		router:    mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	if s.telemetry != nil {
		s.router.Use(s.telemetry.Middleware)
	}
	s.router.Use(httpx.Logger(), httpx.Recovery())

	s.router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/hosting-relay/{type}", s.handleRelay).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events/{type}", s.handleEvents).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Listen,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Combining many slow feeds can take a while.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString(version.Summary())
	b.WriteString("\nHealth: OK\n")

	if s.probes != nil {
		for _, st := range s.probes.Statuses() {
			if st.OK {
				fmt.Fprintf(&b, "Source %s: ok, %d events (checked %s)\n",
					st.Key, st.EventCount, st.CheckedAt.UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintf(&b, "Source %s: failing: %s (checked %s)\n",
					st.Key, st.Error, st.CheckedAt.UTC().Format(time.RFC3339))
			}
		}
	}

	w.Header().Set("Content-Type", mimePlainText)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// handleRelay serves GET /hosting-relay/{type}, where type is a source key
// or "all".
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)[typePathParam]

	appLog.InfoContext(ctx, "relay request", "type", key)

	body, err := s.relay.GetRelay(ctx, key)
	if err != nil {
		s.writeRelayError(ctx, w, err, key)
		return
	}

	h := w.Header()
	h.Set("Content-Type", mimeCalendar)
	h.Set("Cache-Control", cacheControl)
	h.Set("Content-Disposition", contentDisposition)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// eventsResponse is the JSON response shape for /api/events/{type}.
type eventsResponse struct {
	Type            string          `json:"type"`
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// handleEvents previews the relayed calendar as expanded occurrences.
//
// GET /api/events/{type}?days=30&backfill=1&tz=Europe/Lisbon
//   - days:     how many days ahead to include (default 30)
//   - backfill: how many past days to include (default 1)
//   - tz:       IANA display timezone (default UTC)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)[typePathParam]

	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 30)
	if days <= 0 {
		days = 30
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}
	loc := resolveLocationOrUTC(q.Get("tz"))

	now := time.Now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	result, err := s.relay.Preview(ctx, key, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		s.writeRelayError(ctx, w, err, key)
		return
	}

	dtos := make([]occurrenceDTO, 0, len(result.Occurrences))
	for _, occ := range result.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Summary,
			Description: occ.Description,
			Location:    occ.Location,
			Status:      occ.Status,
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Type:            key,
		Occurrences:     dtos,
		TruncatedUIDs:   result.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
	})
}

// writeRelayError maps relay failures: unknown source keys are the client's
// fault, everything else is an upstream problem.
func (s *Server) writeRelayError(ctx context.Context, w http.ResponseWriter, err error, key string) {
	status := http.StatusInternalServerError
	if relay.IsClientError(err) {
		status = http.StatusBadRequest
	}
	appLog.ErrorContext(ctx, "relay failed", err, "type", key, "status", status)
	writeProblem(w, status, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeProblem(w http.ResponseWriter, status int, msg string) {
	type problem struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	w.Header().Set("Content-Type", mimeProblemJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Status: status, Message: msg}); err != nil {
		appLog.Error("failed to write problem response", err)
	}
}
