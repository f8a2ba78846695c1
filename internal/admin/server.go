package admin

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eta-moderator/internal/config"
	"eta-moderator/internal/metrics"
	"eta-moderator/internal/settings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxBodyBytes caps admin request bodies.
const maxBodyBytes = 64 << 10

const defaultAuditLookback = 7 * 24 * time.Hour

//go:embed web/index.html
var indexHTML []byte

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Health  bool
	Metrics bool

	// FailureThreshold wrong passwords from one client within FailureWindow
	// raise a warning log. Zero values use the defaults.
	FailureThreshold int
	FailureWindow    time.Duration
}

// Server routes the admin HTTP surface onto a Service.
type Server struct {
	service   *Service
	store     Pinger
	metrics   *metrics.Metrics
	logger    *zap.Logger
	router    *mux.Router
	failures  *FailureCounter
	threshold int
}

func NewServer(service *Service, store Pinger, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	threshold := opts.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	s := &Server{
		service:   service,
		store:     store,
		metrics:   m,
		logger:    logger,
		router:    mux.NewRouter(),
		failures:  NewFailureCounter(opts.FailureWindow),
		threshold: threshold,
	}

	r := s.router
	r.Use(Logging(logger))
	r.Use(Instrument(m))

	for _, prefix := range []string{"/api", ""} {
		r.HandleFunc(prefix+"/config", s.getConfig).Methods(http.MethodGet)
		r.HandleFunc(prefix+"/config", s.setConfig).Methods(http.MethodPost)
		r.HandleFunc(prefix+"/statistics", s.getStatistics).Methods(http.MethodGet)
		r.HandleFunc(prefix+"/statistics/reset", s.resetStatistics).Methods(http.MethodPost)
		r.HandleFunc(prefix+"/audit", s.listAudit).Methods(http.MethodGet)
	}
	if opts.Health {
		r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	}
	if opts.Metrics && m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// configRequest is the body of POST /config: the password plus any subset of
// the patchable settings fields. Unknown fields are ignored.
type configRequest struct {
	Password *string `json:"password"`
	Secret   *string `json:"secret"`
	config.SettingsPatch
}

type resetRequest struct {
	Password *string `json:"password"`
	Secret   *string `json:"secret"`
}

// secretOf picks the admin password from either accepted field. ok is false
// when the request carried neither.
func secretOf(password, secret *string) (string, bool) {
	if password != nil {
		return *password, true
	}
	if secret != nil {
		return *secret, true
	}
	return "", false
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.GetConfig())
}

func (s *Server) setConfig(w http.ResponseWriter, r *http.Request) {
	client := clientKey(r)
	var req configRequest
	if !decodeBody(w, r, &req) {
		return
	}
	secret, ok := secretOf(req.Password, req.Secret)
	if !ok {
		_ = s.service.Unauthorized(r.Context(), "config")
		s.unauthorized(w, client)
		return
	}

	updated, err := s.service.SetConfig(r.Context(), secret, req.SettingsPatch)
	switch {
	case errors.Is(err, settings.ErrUnauthorized):
		s.unauthorized(w, client)
		return
	case errors.Is(err, config.ErrInvalid):
		respondJSONError(w, http.StatusBadRequest, "invalid_settings", err.Error())
		return
	case err != nil:
		s.logger.Error("settings update failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "persist_failed", "settings could not be saved")
		return
	}
	s.failures.Reset(client)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "settings updated",
		"config":  updated,
	})
}

func (s *Server) getStatistics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.GetStatistics())
}

func (s *Server) resetStatistics(w http.ResponseWriter, r *http.Request) {
	client := clientKey(r)
	var req resetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	secret, ok := secretOf(req.Password, req.Secret)
	if !ok {
		_ = s.service.Unauthorized(r.Context(), "statistics_reset")
		s.unauthorized(w, client)
		return
	}

	err := s.service.ResetStatistics(r.Context(), secret)
	switch {
	case errors.Is(err, settings.ErrUnauthorized):
		s.unauthorized(w, client)
		return
	case err != nil:
		s.logger.Error("statistics reset failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "persist_failed", "statistics could not be reset")
		return
	}
	s.failures.Reset(client)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "statistics reset",
	})
}

// auditEntry is the wire form of one audit log row.
type auditEntry struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guildId"`
	UserID    string    `json:"userId"`
	Level     string    `json:"level"`
	Event     string    `json:"event"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// listAudit answers GET /audit?guild=&since=. since is RFC 3339 and defaults
// to seven days ago; an absent guild selects admin events.
func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since := time.Now().Add(-defaultAuditLookback)
	if raw := query.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "bad_request", "since must be an RFC 3339 timestamp")
			return
		}
		since = parsed
	}

	logs, err := s.service.ListAudit(r.Context(), query.Get("guild"), since)
	if err != nil {
		s.logger.Error("audit listing failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "read_failed", "audit logs could not be read")
		return
	}
	entries := make([]auditEntry, 0, len(logs))
	for _, log := range logs {
		entries = append(entries, auditEntry{
			ID:        log.ID,
			GuildID:   log.GuildID,
			UserID:    log.UserID,
			Level:     log.Level,
			Event:     log.Event,
			Details:   log.Details,
			CreatedAt: log.CreatedAt.UTC(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// unauthorized answers 401. Repeated failures from one client are logged but
// never block the correct password.
func (s *Server) unauthorized(w http.ResponseWriter, client string) {
	if n := s.failures.Fail(client); n >= s.threshold {
		s.logger.Warn("repeated admin password failures", zap.String("client", client), zap.Int("failures", n))
	}
	respondJSONError(w, http.StatusUnauthorized, "unauthorized", "password mismatch")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "healthy"}
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]string{"status": "unhealthy", "database": "unreachable"}
			s.logger.Warn("health check failed", zap.Error(err))
		}
	}
	respondJSON(w, status, body)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

// decodeBody reads a JSON body into v, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSONError(w, http.StatusBadRequest, "bad_request", "request body must be a JSON object")
		return false
	}
	return true
}
