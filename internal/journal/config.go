package journal

import (
	"fmt"
	"net/url"

	"github.com/yanun0323/errors"
)

// Config describes the journal database and writer queue.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`

	QueueSize int `json:"queueSize"`
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	return c
}

// Validate checks the fields a connection attempt cannot default.
func (c Config) Validate() error {
	if c.Database == "" {
		return errors.New("journal: missing database name")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("journal: invalid port %d", c.Port)
	}
	return nil
}

func (c Config) dsn() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	u.RawQuery = query.Encode()
	return u.String()
}
