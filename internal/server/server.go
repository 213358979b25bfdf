// Package server exposes the trial log service over HTTP.
package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuigrid/internal/model"
	"github.com/verte-zerg/tuigrid/internal/stats"
	"github.com/verte-zerg/tuigrid/internal/store"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

var csvHeader = []string{
	"session_id", "trial_number", "timestamp", "target_name",
	"image_file_name", "time_taken_ms", "prompt_used", "correct",
}

// TrialStore is the persistence the service needs.
type TrialStore interface {
	InsertTrial(ctx context.Context, rec model.TrialRecord) (int64, error)
	ListTrials(ctx context.Context, sessionID string) ([]model.TrialRecord, error)
	ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.SessionAggregate, error)
}

// Server handles trial logging and export.
type Server struct {
	store TrialStore
	log   *zap.Logger
}

// NewHandler returns the service's HTTP handler.
func NewHandler(st TrialStore, log *zap.Logger) http.Handler {
	s := &Server{store: st, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /log_interaction", s.handleLogInteraction)
	mux.HandleFunc("GET /download_data/{sessionID}", s.handleDownload)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	return chainMiddlewares(mux, withCORS, withLogging(log))
}

// Run serves handler on addr until ctx is cancelled, then shuts down.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("log service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("log service shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "tuigrid trial log service")
	_, _ = fmt.Fprintln(w, "POST /log_interaction  GET /download_data/{session_id}  GET /sessions")
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleLogInteraction(w http.ResponseWriter, r *http.Request) {
	var rec model.TrialRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if rec.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	ts, err := store.ParseTimestamp(rec.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "timestamp must be ISO-8601")
		return
	}
	rec.Timestamp = store.FormatTimestamp(ts)
	if _, err := s.store.InsertTrial(r.Context(), rec); err != nil {
		s.log.Error("failed to store trial", zap.String("session", rec.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store trial")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	records, err := s.store.ListTrials(r.Context(), sessionID)
	if err != nil {
		s.log.Error("failed to list trials", zap.String("session", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session data")
		return
	}
	if len(records) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, "No data available for this session.")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session_"+sessionID+".csv"))
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		s.log.Warn("failed to write csv", zap.Error(err))
		return
	}
	for _, rec := range records {
		row := []string{
			rec.SessionID,
			strconv.Itoa(rec.TrialNumber),
			rec.Timestamp,
			rec.TargetName,
			rec.ImageFileName,
			strconv.FormatInt(rec.TimeTakenMs, 10),
			rec.PromptUsed,
			rec.Correct,
		}
		if err := cw.Write(row); err != nil {
			s.log.Warn("failed to write csv", zap.Error(err))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.log.Warn("failed to flush csv", zap.Error(err))
	}
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
	Trials    int       `json:"total_trials"`
	Correct   int       `json:"correct_responses"`
	Incorrect int       `json:"incorrect_responses"`
	Accuracy  string    `json:"accuracy"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var filter model.SessionFilter
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "last must be a non-negative integer")
			return
		}
		filter.Last = n
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := store.ParseTimestamp(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be ISO-8601")
			return
		}
		filter.Since = &since
	}
	sessions, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		s.log.Error("failed to list sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, agg := range sessions {
		resp = append(resp, sessionResponse{
			SessionID: agg.SessionID,
			FirstAt:   agg.FirstAt,
			LastAt:    agg.LastAt,
			Trials:    agg.Trials,
			Correct:   agg.Correct,
			Incorrect: agg.Incorrect,
			Accuracy:  stats.FormatAccuracy(agg.Correct, agg.Trials),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
