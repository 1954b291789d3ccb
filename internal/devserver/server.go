// Package devserver is a local stand-in for the marketplace backend. It serves
// the /users/{userId}/... REST family the clients use, backed by sqlite, so
// the CLI and TUI can be exercised without the real service.
package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

type Config struct {
	// ReadOnlyUsers get a snapshot without the manage permission and 403 on
	// every mutation.
	ReadOnlyUsers []string
	Logger        *slog.Logger
}

type Server struct {
	store    *Store
	readOnly map[string]bool
	log      *slog.Logger
}

func New(store *Store, cfg Config) *Server {
	ro := map[string]bool{}
	for _, u := range cfg.ReadOnlyUsers {
		if u = strings.TrimSpace(u); u != "" {
			ro[u] = true
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{store: store, readOnly: ro, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /users/{user}/event-management", s.handleEventsSnapshot)
	mux.HandleFunc("PUT /users/{user}/{ws}/settings", s.writeGuard(s.handleSettingsSave))
	mux.HandleFunc("POST /users/{user}/event-management/events", s.writeGuard(s.handleEventCreate))
	mux.HandleFunc("GET /users/{user}/event-management/events/{id}", s.handleEventGet)
	mux.HandleFunc("PATCH /users/{user}/event-management/events/{id}", s.writeGuard(s.handleEventPatch))
	mux.HandleFunc("DELETE /users/{user}/event-management/events/{id}", s.writeGuard(s.handleDelete(kindEvents)))
	mux.HandleFunc("POST /users/{user}/event-management/events/{event}/{child}", s.writeGuard(s.handleChildCreate))
	mux.HandleFunc("PATCH /users/{user}/event-management/events/{event}/{child}/{id}", s.writeGuard(s.handleChildPatch))
	mux.HandleFunc("DELETE /users/{user}/event-management/events/{event}/{child}/{id}", s.writeGuard(s.handleChildDelete))

	mux.HandleFunc("GET /users/{user}/wallet", s.handleWalletSnapshot)
	mux.HandleFunc("POST /users/{user}/wallet/accounts", s.writeGuard(s.handleAccountCreate))
	mux.HandleFunc("PATCH /users/{user}/wallet/accounts/{id}", s.writeGuard(s.handleAccountPatch))
	mux.HandleFunc("DELETE /users/{user}/wallet/accounts/{id}", s.writeGuard(s.handleAccountDelete))
	mux.HandleFunc("POST /users/{user}/wallet/transfers", s.writeGuard(s.handleTransfer))

	mux.HandleFunc("GET /users/{user}/mentoring", s.handleMentoringSnapshot)
	mux.HandleFunc("POST /users/{user}/mentoring/sessions", s.writeGuard(s.handleSessionCreate))
	mux.HandleFunc("PATCH /users/{user}/mentoring/sessions/{id}", s.writeGuard(s.handleSessionPatch))
	mux.HandleFunc("DELETE /users/{user}/mentoring/sessions/{id}", s.writeGuard(s.handleDelete(kindSessions)))
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeGuard(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.readOnly[r.PathValue("user")] {
			writeError(w, http.StatusForbidden, "access denied: missing management permission")
			return
		}
		h(w, r)
	}
}

func (s *Server) permissions(user string) map[string]bool {
	return map[string]bool{"view": true, "manage": !s.readOnly[user]}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDelete(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Delete(r.Context(), r.PathValue("user"), kind, r.PathValue("id")); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	switch ws := r.PathValue("ws"); ws {
	case "event-management", "wallet", "mentoring":
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		d, err := s.store.SaveSettings(r.Context(), r.PathValue("user"), ws, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": d})
	default:
		writeError(w, http.StatusNotFound, "unknown workspace")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var ve validationError
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, ve.msg)
	case errors.Is(err, errSameAccount), errors.Is(err, errCurrency), errors.Is(err, errInsufficient), errors.Is(err, errAccountClosed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

func invalid(msg string) error { return validationError{msg: msg} }

func readBody(w http.ResponseWriter, r *http.Request) (Doc, bool) {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.UseNumber()
	var d Doc
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return nil, false
	}
	if d == nil {
		d = Doc{}
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

// pick copies the allowed keys present in body.
func pick(body Doc, keys ...string) Doc {
	out := Doc{}
	for _, k := range keys {
		if v, ok := body[k]; ok {
			out[k] = v
		}
	}
	return out
}

func sortByTime(docs []Doc, key string) {
	sort.SliceStable(docs, func(i, j int) bool {
		return str(docs[i], key) > str(docs[j], key)
	})
}
