package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string        `json:"log_level" yaml:"log_level"`
	Monitor  MonitorConfig `json:"monitor" yaml:"monitor"`
	Geo      GeoConfig     `json:"geo" yaml:"geo"`
	Notify   NotifyConfig  `json:"notify" yaml:"notify"`
	Email    EmailConfig   `json:"email" yaml:"email"`
	Events   EventsConfig  `json:"events" yaml:"events"`
	Storage  StorageConfig `json:"storage" yaml:"storage"`
	Ingest   IngestConfig  `json:"ingest" yaml:"ingest"`
	API      APIConfig     `json:"api" yaml:"api"`
}

type MonitorConfig struct {
	ScanInterval         time.Duration `json:"scan_interval" yaml:"scan_interval"`
	FailedLoginThreshold int           `json:"failed_login_threshold" yaml:"failed_login_threshold"`
	BruteForceWindow     time.Duration `json:"brute_force_window" yaml:"brute_force_window"`
	SensitiveServices    []string      `json:"sensitive_services" yaml:"sensitive_services"`
	QueueBuffer          int           `json:"queue_buffer" yaml:"queue_buffer"`
}

type GeoConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

type NotifyConfig struct {
	Service    string `json:"service" yaml:"service"`
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

type EmailConfig struct {
	Recipient    string `json:"recipient" yaml:"recipient"`
	SMTPHost     string `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUsername string `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword string `json:"smtp_password" yaml:"smtp_password"`
}

// Enabled reports whether email alerting is configured; host and recipient
// are both required.
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.Recipient != ""
}

type EventsConfig struct {
	StoreLimit   int    `json:"store_limit" yaml:"store_limit"`
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type IngestConfig struct {
	REST     RESTConfig     `json:"rest" yaml:"rest"`
	Kafka    KafkaConfig    `json:"kafka" yaml:"kafka"`
	FileTail FileTailConfig `json:"file_tail" yaml:"file_tail"`
}

type RESTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type KafkaConfig struct {
	Enabled             bool     `json:"enabled" yaml:"enabled"`
	Brokers             []string `json:"brokers" yaml:"brokers"`
	GroupID             string   `json:"group_id" yaml:"group_id"`
	AuthFailedTopic     string   `json:"auth_failed_topic" yaml:"auth_failed_topic"`
	ServiceCallTopic    string   `json:"service_call_topic" yaml:"service_call_topic"`
	DeviceRegistryTopic string   `json:"device_registry_topic" yaml:"device_registry_topic"`
	BroadcastTopic      string   `json:"broadcast_topic" yaml:"broadcast_topic"`
}

type FileTailConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StartAtEnd bool     `json:"start_at_end" yaml:"start_at_end"`
	Files      []string `json:"files" yaml:"files"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

const (
	DefaultNotifyService = "persistent_notification"
	DefaultSMTPPort      = 587
)

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Monitor: MonitorConfig{
			ScanInterval:         60 * time.Second,
			FailedLoginThreshold: 5,
			BruteForceWindow:     60 * time.Second,
			SensitiveServices: []string{
				"shell_command",
				"python_script",
				"homeassistant.restart",
				"homeassistant.stop",
			},
			QueueBuffer: 1000,
		},
		Geo: GeoConfig{
			Timeout: 5 * time.Second,
		},
		Notify: NotifyConfig{
			Service: DefaultNotifyService,
		},
		Email: EmailConfig{
			SMTPPort: DefaultSMTPPort,
		},
		Events: EventsConfig{
			StoreLimit:   500,
			SnapshotPath: "sentinel_events.json",
		},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:sentinel.db?_pragma=busy_timeout(5000)"},
		Ingest: IngestConfig{
			REST: RESTConfig{Enabled: true, Addr: ":8080"},
			Kafka: KafkaConfig{
				Enabled:             false,
				AuthFailedTopic:     "platform.auth_failed",
				ServiceCallTopic:    "platform.call_service",
				DeviceRegistryTopic: "platform.device_registry",
				BroadcastTopic:      "security_sentinel_event",
			},
			FileTail: FileTailConfig{Enabled: false, StartAtEnd: true},
		},
		API: APIConfig{Enabled: true, Addr: ":8081"},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Monitor.ScanInterval <= 0 {
		cfg.Monitor.ScanInterval = 60 * time.Second
	}
	if cfg.Monitor.FailedLoginThreshold <= 0 {
		cfg.Monitor.FailedLoginThreshold = 5
	}
	if cfg.Monitor.BruteForceWindow <= 0 {
		cfg.Monitor.BruteForceWindow = 60 * time.Second
	}
	if len(cfg.Monitor.SensitiveServices) == 0 {
		cfg.Monitor.SensitiveServices = DefaultConfig().Monitor.SensitiveServices
	}
	if cfg.Monitor.QueueBuffer <= 0 {
		cfg.Monitor.QueueBuffer = 1000
	}
	if cfg.Geo.Timeout <= 0 {
		cfg.Geo.Timeout = 5 * time.Second
	}
	if cfg.Notify.Service == "" {
		cfg.Notify.Service = DefaultNotifyService
	}
	if cfg.Email.SMTPPort <= 0 {
		cfg.Email.SMTPPort = DefaultSMTPPort
	}
	if cfg.Events.StoreLimit <= 0 {
		cfg.Events.StoreLimit = 500
	}
	if cfg.Events.SnapshotPath == "" {
		cfg.Events.SnapshotPath = "sentinel_events.json"
	}
	if cfg.Ingest.Kafka.BroadcastTopic == "" {
		cfg.Ingest.Kafka.BroadcastTopic = "security_sentinel_event"
	}
}

func Validate(cfg *Config) error {
	if iv := cfg.Monitor.ScanInterval; iv < 10*time.Second || iv > 3600*time.Second {
		return fmt.Errorf("monitor.scan_interval out of range [10s,3600s]: %s", iv)
	}
	if th := cfg.Monitor.FailedLoginThreshold; th < 2 || th > 100 {
		return fmt.Errorf("monitor.failed_login_threshold out of range [2,100]: %d", th)
	}
	if win := cfg.Monitor.BruteForceWindow; win < 10*time.Second || win > 3600*time.Second {
		return fmt.Errorf("monitor.brute_force_window out of range [10s,3600s]: %s", win)
	}
	if port := cfg.Email.SMTPPort; port < 1 || port > 65535 {
		return fmt.Errorf("email.smtp_port out of range [1,65535]: %d", port)
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.REST.Enabled && cfg.Ingest.REST.Addr == "" {
		return errors.New("ingest.rest.addr required when ingest.rest.enabled is true")
	}
	if cfg.Ingest.FileTail.Enabled && len(cfg.Ingest.FileTail.Files) == 0 {
		return errors.New("ingest.file_tail.files required when ingest.file_tail.enabled is true")
	}
	if k := cfg.Ingest.Kafka; k.Enabled {
		if len(k.Brokers) == 0 || k.GroupID == "" {
			return errors.New("ingest.kafka requires brokers and group_id")
		}
		if k.AuthFailedTopic == "" && k.ServiceCallTopic == "" && k.DeviceRegistryTopic == "" {
			return errors.New("ingest.kafka requires at least one signal topic")
		}
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an in-memory config with no backing file; Reload
// and Watch are no-ops for it.
func NewStaticManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if m.path != "" {
		if err := Save(m.path, cfg); err != nil {
			return err
		}
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
