package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/luca-patrignani/mental-poker-holdem/application"
	"github.com/luca-patrignani/mental-poker-holdem/domain/poker"
	"github.com/luca-patrignani/mental-poker-holdem/ledger"
)

// table is the part of application.App the API drives.
type table interface {
	StartNewRound(ctx context.Context, settings poker.Settings) error
	Bet(ctx context.Context, amount int) error
	Fold(ctx context.Context) error
	Snapshot(ctx context.Context) (application.Snapshot, error)
	Ledger(ctx context.Context) ([]ledger.Entry, error)
}

type apiFunc func(w http.ResponseWriter, r *http.Request) error

func makeHttpHandleFunc(f apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeJSON(w, statusOf(err), map[string]any{"error": err.Error()})
		}
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, application.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, application.ErrNotYourTurn), errors.Is(err, application.ErrNoRound):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type apiServer struct {
	table    table
	settings poker.Settings
}

func newRouter(t table, settings poker.Settings) *mux.Router {
	s := &apiServer{table: t, settings: settings}
	r := mux.NewRouter()
	r.HandleFunc("/state", makeHttpHandleFunc(s.handleState)).Methods(http.MethodGet)
	r.HandleFunc("/ledger", makeHttpHandleFunc(s.handleLedger)).Methods(http.MethodGet)
	r.HandleFunc("/round", makeHttpHandleFunc(s.handleNewRound)).Methods(http.MethodPost)
	r.HandleFunc("/check", makeHttpHandleFunc(s.handleCheck)).Methods(http.MethodPost)
	r.HandleFunc("/bet/{amount:[0-9]+}", makeHttpHandleFunc(s.handleBet)).Methods(http.MethodPost)
	r.HandleFunc("/fold", makeHttpHandleFunc(s.handleFold)).Methods(http.MethodPost)
	return r
}

// serveAPI runs the control API on addr until ctx is done.
func serveAPI(ctx context.Context, addr string, t table, settings poker.Settings, log *slog.Logger) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control API: %w", err)
	}
	server := &http.Server{Handler: newRouter(t, settings), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdown)
	}()
	log.Info("control API listening", "addr", l.Addr().String())
	if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *apiServer) handleState(w http.ResponseWriter, r *http.Request) error {
	snapshot, err := s.table.Snapshot(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snapshot)
}

func (s *apiServer) handleLedger(w http.ResponseWriter, r *http.Request) error {
	entries, err := s.table.Ledger(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, entries)
}

// handleNewRound starts a round with the configured settings, or with the
// ones in the body if there is one.
func (s *apiServer) handleNewRound(w http.ResponseWriter, r *http.Request) error {
	settings := s.settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.table.StartNewRound(r.Context(), settings); err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, settings)
}

func (s *apiServer) handleCheck(w http.ResponseWriter, r *http.Request) error {
	if err := s.table.Bet(r.Context(), 0); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, "checked")
}

func (s *apiServer) handleBet(w http.ResponseWriter, r *http.Request) error {
	amount, err := strconv.Atoi(mux.Vars(r)["amount"])
	if err != nil {
		return err
	}
	if err := s.table.Bet(r.Context(), amount); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, fmt.Sprintf("bet placed with value %d", amount))
}

func (s *apiServer) handleFold(w http.ResponseWriter, r *http.Request) error {
	if err := s.table.Fold(r.Context()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, "folded")
}
