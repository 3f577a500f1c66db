// Package hash provides keyed digests for values that must be recognisable
// across systems without being disclosed.
package hash
