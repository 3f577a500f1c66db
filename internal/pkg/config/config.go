// Package config exposes typed, read-only access to runtime configuration.
package config

import (
	"io"
	"time"
)

// Config defines a set of methods for retrieving configuration values of
// various types. Missing keys yield the zero value unless a default was
// registered when the implementation was built.
type Config interface {
	io.Closer

	// GetBool retrieves the value for key as a bool.
	GetBool(key string) bool

	// GetString retrieves the value for key as a string.
	GetString(key string) string

	// GetInt retrieves the value for key as an int.
	GetInt(key string) int

	// GetUint retrieves the value for key as a uint.
	GetUint(key string) uint

	// GetSecond retrieves an integer value for key interpreted as seconds.
	GetSecond(key string) time.Duration

	// GetBinary retrieves a base64 encoded value for key as raw bytes. Invalid
	// base64 yields nil.
	GetBinary(key string) []byte

	// GetArray retrieves a comma separated value for key. Elements are trimmed
	// and empty elements dropped.
	GetArray(key string) []string

	// GetMap retrieves a value stored as <key1>:<value1>,<key2>:<value2>.
	GetMap(key string) map[string]string
}
