// Package config reads server settings from the environment, after loading
// any .env files that exist.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const prefix = "TABLETOP_"

type Config struct {
	Addr             string
	DefaultGame      string
	MaxChainDepth    int
	OutboxSize       int
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	EmptyRoomTTL     time.Duration
	DisconnectPolicy string
	DatabaseURL      string
	Debug            bool
}

func Default() Config {
	return Config{
		Addr:             ":8080",
		DefaultGame:      "blackjack",
		MaxChainDepth:    32,
		OutboxSize:       64,
		WriteTimeout:     3 * time.Second,
		IdleTimeout:      5 * time.Minute,
		EmptyRoomTTL:     time.Minute,
		DisconnectPolicy: "wait",
	}
}

// Load reads the given .env files (default ".env") into the process
// environment, skipping missing ones, then builds a Config from it.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Every invalid value is reported.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	var errs error

	str := func(name string, dst *string) {
		if v := getenv(prefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		v := getenv(prefix + name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: want a positive integer, got %q", prefix, name, v))
			return
		}
		*dst = n
	}
	dur := func(name string, dst *time.Duration) {
		v := getenv(prefix + name)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: want a positive duration, got %q", prefix, name, v))
			return
		}
		*dst = d
	}

	str("ADDR", &c.Addr)
	str("DEFAULT_GAME", &c.DefaultGame)
	num("MAX_CHAIN_DEPTH", &c.MaxChainDepth)
	num("OUTBOX_SIZE", &c.OutboxSize)
	dur("WRITE_TIMEOUT", &c.WriteTimeout)
	dur("IDLE_TIMEOUT", &c.IdleTimeout)
	dur("EMPTY_ROOM_TTL", &c.EmptyRoomTTL)
	str("DISCONNECT_POLICY", &c.DisconnectPolicy)
	str("DATABASE_URL", &c.DatabaseURL)

	if v := getenv(prefix + "DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%sDEBUG: %w", prefix, err))
		}
		c.Debug = b
	}

	switch c.DisconnectPolicy {
	case "wait", "skip":
	default:
		errs = multierr.Append(errs, fmt.Errorf("%sDISCONNECT_POLICY: want wait or skip, got %q", prefix, c.DisconnectPolicy))
	}

	if errs != nil {
		return Config{}, errs
	}
	return c, nil
}
