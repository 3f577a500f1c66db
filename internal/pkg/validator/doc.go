// Package validator validates request and dependency structs using struct tags.
//
// Failures are reported per field, keyed by the field's JSON name, with
// English messages suitable for returning to API clients.
package validator
