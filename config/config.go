/*
Package config implements TOML config file handling for the Glossa CAT
workflow service.

Normally it will be used by simply passing a config file name to the
Load function to obtain a Config struct.
*/
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DbDriverSqlite3    = "sqlite3"
	DbDriverPostgresql = "postgres"
)

// Config represents the parsed configuration for the workflow service.
type Config struct {
	DB       DbConfig       `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Export   ExportConfig   `toml:"export"`
	Autosave AutosaveConfig `toml:"autosave"`
}

// valid checks if the Config is valid in its current state.
func (c *Config) valid() error {
	if c.DB.Driver != DbDriverSqlite3 && c.DB.Driver != DbDriverPostgresql {
		drivers := []string{DbDriverPostgresql, DbDriverSqlite3}
		return fmt.Errorf("config: invalid database.driver value. (Must be one of: '%v')", strings.Join(drivers, ", "))
	}
	if c.DB.Driver == DbDriverSqlite3 && len(c.DB.File) == 0 {
		return errors.New("config: missing database.file value")
	}
	if c.DB.Driver == DbDriverPostgresql {
		if len(c.DB.Host) == 0 {
			return errors.New("config: missing database.host value")
		}
		if len(c.DB.Name) == 0 {
			return errors.New("config: missing database.name value")
		}
		if len(c.DB.User) == 0 {
			return errors.New("config: missing database.user value")
		}
		if c.DB.Port < 0 {
			return errors.New("config: invalid database.port value")
		}
	}
	if c.Server.Port < 0 {
		return errors.New("config: server.port is invalid")
	}
	if len(c.Export.Path) == 0 {
		return errors.New("config: missing export.path value")
	}
	if c.Autosave.DebounceMillis <= 0 {
		return errors.New("config: autosave.debounce_millis must be positive")
	}
	if c.Autosave.MaxRetries < 0 {
		return errors.New("config: autosave.max_retries is invalid")
	}
	return nil
}

// DbConfig contains database connection configuration.
type DbConfig struct {
	// Must be 'sqlite3' or 'postgres'
	Driver string
	// When driver is sqlite3, this is the path to the database file
	File     string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port that the server should run on.
	Port int
}

// ExportConfig contains export output configuration.
type ExportConfig struct {
	// Path to write exported files to
	Path string `toml:"path"`
}

// AutosaveConfig contains autosave coordinator tuning.
type AutosaveConfig struct {
	// Debounce delay between the last keystroke and the persist
	DebounceMillis int `toml:"debounce_millis"`
	// How many times a persist is retried when the backend is down
	MaxRetries int `toml:"max_retries"`
	// Initial retry backoff; doubles per attempt
	RetryBackoffMillis int `toml:"retry_backoff_millis"`
}

// Debounce returns the debounce delay as a Duration.
func (a *AutosaveConfig) Debounce() time.Duration {
	return time.Duration(a.DebounceMillis) * time.Millisecond
}

// RetryBackoff returns the initial retry backoff as a Duration.
func (a *AutosaveConfig) RetryBackoff() time.Duration {
	return time.Duration(a.RetryBackoffMillis) * time.Millisecond
}

// Gets a connection string for this config.
func (d *DbConfig) ConnectionString() string {
	cStr := ""
	switch d.Driver {
	case DbDriverPostgresql:
		cStr = fmt.Sprintf("postgres://%v:%v@%v/%v?sslmode=disable", d.User, d.Password, d.Host, d.Name)
	case DbDriverSqlite3:
		cStr = d.File
	}
	return cStr
}

// Creates a new Config with some default values.
func new() Config {
	c := Config{
		DB: DbConfig{
			Driver: "sqlite3",
			File:   filepath.FromSlash("./glossa.db"),
			Port:   5432, // Postgres default port
		},
		Server: ServerConfig{
			Port: 8181,
		},
		Export: ExportConfig{
			Path: filepath.FromSlash("./export"),
		},
		Autosave: AutosaveConfig{
			DebounceMillis:     2000,
			MaxRetries:         3,
			RetryBackoffMillis: 500,
		},
	}
	return c
}

// Loads config from a TOML file and checks its validity.
func Load(file string) (Config, error) {
	conf := new()
	_, err := toml.DecodeFile(file, &conf)
	if err != nil {
		return conf, err
	}

	if err = conf.valid(); err != nil {
		return conf, err
	}

	return conf, nil
}

// Default returns the built-in default configuration. It is used by
// tests and by commands that can run without a config file on disk.
func Default() Config {
	return new()
}
