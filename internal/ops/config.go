package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/journal"
	"main/internal/risk"
	"main/internal/session"
)

// envPassword overrides the configured session password when set, so
// credentials can stay out of the config file.
const envPassword = "FIX_PASSWORD"

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Session SessionConfig `json:"session"`
	Limits  risk.Limits   `json:"limits"`
	Journal JournalConfig `json:"journal"`
	Alert   AlertConfig   `json:"alert"`
}

// SessionConfig describes the venue connection. Durations are seconds.
type SessionConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	SenderCompID     string `json:"senderCompId"`
	SenderSubID      string `json:"senderSubId"`
	TargetCompID     string `json:"targetCompId"`
	Password         string `json:"password"`
	Account          string `json:"account"`
	HeartbeatSeconds int    `json:"heartbeatSeconds"`
	ConnectSeconds   int    `json:"connectTimeoutSeconds"`
	LogonSeconds     int    `json:"logonTimeoutSeconds"`
}

// JournalConfig wraps the journal settings with an enable switch.
type JournalConfig struct {
	Enabled bool `json:"enabled"`
	journal.Config
}

// AlertConfig sizes the alert queue.
type AlertConfig struct {
	QueueSize int `json:"queueSize"`
}

// Loaded is the resolved configuration ready for use. It is assembled
// once at startup; nothing re-reads files or environment afterwards.
type Loaded struct {
	Session        session.Config
	Limits         risk.Limits
	Journal        journal.Config
	JournalEnabled bool
	AlertQueueSize int
}

// Load reads a JSON config file, applies environment overrides, and
// validates the result.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config file")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config file")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if v := os.Getenv(envPassword); v != "" {
		cfg.Session.Password = v
	}
	if err := validateSession(cfg.Session); err != nil {
		return Loaded{}, err
	}
	if cfg.Alert.QueueSize <= 0 {
		cfg.Alert.QueueSize = 256
	}

	loaded := Loaded{
		Session: session.Config{
			Host:              cfg.Session.Host,
			Port:              cfg.Session.Port,
			SenderCompID:      cfg.Session.SenderCompID,
			SenderSubID:       cfg.Session.SenderSubID,
			TargetCompID:      cfg.Session.TargetCompID,
			Password:          cfg.Session.Password,
			Account:           cfg.Session.Account,
			HeartbeatInterval: time.Duration(cfg.Session.HeartbeatSeconds) * time.Second,
			ConnectTimeout:    time.Duration(cfg.Session.ConnectSeconds) * time.Second,
			LogonTimeout:      time.Duration(cfg.Session.LogonSeconds) * time.Second,
		},
		Limits:         cfg.Limits,
		Journal:        cfg.Journal.Config,
		JournalEnabled: cfg.Journal.Enabled,
		AlertQueueSize: cfg.Alert.QueueSize,
	}
	if loaded.JournalEnabled {
		if err := loaded.Journal.Validate(); err != nil {
			return Loaded{}, err
		}
	}
	return loaded, nil
}

func validateSession(cfg SessionConfig) error {
	if cfg.Host == "" {
		return errors.New("config: missing session host")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.Errorf("config: invalid session port %d", cfg.Port)
	}
	if cfg.SenderCompID == "" || cfg.TargetCompID == "" {
		return errors.New("config: missing comp ids")
	}
	if cfg.Account == "" {
		return errors.New("config: missing account")
	}
	return nil
}
