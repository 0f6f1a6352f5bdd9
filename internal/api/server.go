package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"sentinel/internal/config"
	"sentinel/internal/events"
	"sentinel/internal/model"
	"sentinel/internal/notify"
	"sentinel/internal/sensors"
)

// MonitorControl exposes the reset hooks the admin endpoints need.
type MonitorControl interface {
	Reset()
}

type Server struct {
	cfg     *config.Manager
	log     *events.Log
	sensors *sensors.Store
	center  *notify.Center
	monitor MonitorControl
	logger  *slog.Logger
	version string
}

type statusResponse struct {
	Status     string        `json:"status"`
	Time       string        `json:"time"`
	Version    string        `json:"version"`
	ConfigPath string        `json:"config_path"`
	Monitor    monitorStatus `json:"monitor"`
	Ingest     ingestStatus  `json:"ingest"`
	API        apiStatus     `json:"api"`
}

type monitorStatus struct {
	FailedLoginThreshold int    `json:"failed_login_threshold"`
	BruteForceWindow     string `json:"brute_force_window"`
	SensitiveServices    int    `json:"sensitive_services"`
}

type ingestStatus struct {
	REST     bool `json:"rest"`
	Kafka    bool `json:"kafka"`
	FileTail bool `json:"file_tail"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

func Start(ctx context.Context, cfg *config.Manager, log *events.Log, sensorStore *sensors.Store, center *notify.Center, monitor MonitorControl, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:     cfg,
		log:     log,
		sensors: sensorStore,
		center:  center,
		monitor: monitor,
		logger:  logger,
		version: version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/events", server.handleEvents)
	mux.HandleFunc("/sensors", server.handleSensors)
	mux.HandleFunc("/notifications", server.handleNotifications)
	mux.HandleFunc("/notifications/dismiss", server.handleDismiss)
	mux.HandleFunc("/admin/clear", server.handleClear)
	mux.HandleFunc("/admin/restart", server.handleRestart)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Monitor: monitorStatus{
			FailedLoginThreshold: cfg.Monitor.FailedLoginThreshold,
			BruteForceWindow:     cfg.Monitor.BruteForceWindow.String(),
			SensitiveServices:    len(cfg.Monitor.SensitiveServices),
		},
		Ingest: ingestStatus{
			REST:     cfg.Ingest.REST.Enabled,
			Kafka:    cfg.Ingest.Kafka.Enabled,
			FileTail: cfg.Ingest.FileTail.Enabled,
		},
		API: apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sinceStr := r.URL.Query().Get("since")
	var list []model.SecurityEvent
	if sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.log.Since(ts)
	} else {
		list = s.log.All(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": list,
		"count":  len(list),
	})
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snapshot, updated := s.sensors.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":   snapshot,
		"updated_at": updated.UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.center.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"count":         len(list),
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.ID) == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.center.Dismiss(req.ID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &req)
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		s.log.Clear()
		s.sensors.Clear()
		s.center.Clear()
	case "events":
		s.log.Clear()
		s.sensors.Clear()
	case "notifications":
		s.center.Clear()
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.monitor != nil {
		s.monitor.Reset()
	}
	s.log.Clear()
	s.sensors.Clear()
	s.center.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
