// Package config provides shared configuration utilities.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt returns the integer value of key, or fallback if it is unset
// or not an integer.
func GetEnvInt(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warn("ignoring invalid integer", "key", key, "value", value)
		return fallback
	}
	return n
}

// GetEnvBool returns the boolean value of key, or fallback if it is unset
// or not a boolean.
func GetEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("ignoring invalid boolean", "key", key, "value", value)
		return fallback
	}
	return b
}

// GetEnvDuration returns the duration value of key (e.g. "1500ms"), or
// fallback if it is unset or not a duration.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("ignoring invalid duration", "key", key, "value", value)
		return fallback
	}
	return d
}

// GetLogLevel returns the log level named by key, or fallback if it is
// unset or unknown.
func GetLogLevel(key string, fallback log.Level) log.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	level, err := log.ParseLevel(value)
	if err != nil {
		log.Warn("ignoring invalid log level", "key", key, "value", value)
		return fallback
	}
	return level
}
