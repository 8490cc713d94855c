// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package configs contains the application's configuration.
// It's loaded from a TOML file and can be overridden by
// environment variables prefixed with "MICRODATA_".
package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/komkom/toml"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "MICRODATA_"

var version = "dev"

type config struct {
	Main     configMain     `json:"main" envPrefix:"MAIN_"`
	Server   configServer   `json:"server" envPrefix:"SERVER_"`
	Database configDatabase `json:"database" envPrefix:"DATABASE_"`
	Cache    configCache    `json:"cache" envPrefix:"CACHE_"`
	Fetch    configFetch    `json:"fetch" envPrefix:"FETCH_"`
}

type configMain struct {
	LogLevel slog.Level `json:"log_level" env:"LOG_LEVEL"`
	DevMode  bool       `json:"dev_mode" env:"DEV_MODE"`
}

type configServer struct {
	Host   string `json:"host" env:"HOST"`
	Port   int    `json:"port" env:"PORT"`
	Prefix string `json:"prefix" env:"PREFIX"`
}

type configDatabase struct {
	Source string `json:"source" env:"SOURCE"`
}

type configCache struct {
	// Source is "memory" or a redis URL.
	Source string   `json:"source" env:"SOURCE"`
	TTL    Duration `json:"ttl" env:"TTL"`
}

type configFetch struct {
	Timeout     Duration      `json:"timeout" env:"TIMEOUT"`
	MaxSize     int64         `json:"max_size" env:"MAX_SIZE"`
	Concurrency int           `json:"concurrency" env:"CONCURRENCY"`
	UserAgent   string        `json:"user_agent" env:"USER_AGENT"`
	DeniedIPs   []configIPNet `json:"denied_ips" env:"DENIED_IPS"`
}

// Duration is a [time.Duration] that can be read from
// a string like "10s" or "1h30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type configIPNet struct {
	*net.IPNet
}

func (n *configIPNet) UnmarshalText(text []byte) error {
	_, ipnet, err := net.ParseCIDR(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	n.IPNet = ipnet
	return nil
}

func (n configIPNet) MarshalText() ([]byte, error) {
	if n.IPNet == nil {
		return []byte{}, nil
	}
	return []byte(n.String()), nil
}

// Config holds the configuration data from configuration files
// or flags.
//
// It's initialized with some default values.
var Config = newConfig()

func newConfig() config {
	return config{
		Main: configMain{
			LogLevel: slog.LevelInfo,
		},
		Server: configServer{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Database: configDatabase{
			Source: "sqlite3:data/microdata.sqlite3",
		},
		Cache: configCache{
			Source: "memory",
			TTL:    Duration{10 * time.Minute},
		},
		Fetch: configFetch{
			Timeout:     Duration{15 * time.Second},
			MaxSize:     10 << 20,
			Concurrency: 4,
			DeniedIPs:   []configIPNet{},
		},
	}
}

// LoadConfiguration loads the configuration file, when it exists,
// and then the environment variables.
func LoadConfiguration(configPath string) error {
	if configPath != "" {
		fd, err := os.Open(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// A missing file only keeps the defaults
		case err != nil:
			return err
		default:
			defer fd.Close() //nolint:errcheck
			dec := json.NewDecoder(toml.New(fd))
			if err = dec.Decode(&Config); err != nil {
				return fmt.Errorf("cannot read %s: %w", configPath, err)
			}
		}
	}

	return env.ParseWithOptions(&Config, env.Options{Prefix: EnvPrefix})
}

// DeniedIPs returns the IP ranges the HTTP client can't connect to.
func DeniedIPs() []*net.IPNet {
	res := make([]*net.IPNet, 0, len(Config.Fetch.DeniedIPs))
	for _, n := range Config.Fetch.DeniedIPs {
		if n.IPNet != nil {
			res = append(res, n.IPNet)
		}
	}
	return res
}

// Version returns the current version.
func Version() string {
	return version
}
