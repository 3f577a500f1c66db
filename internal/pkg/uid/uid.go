// Package uid generates identifiers for requests and published events.
package uid

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates roughly time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
