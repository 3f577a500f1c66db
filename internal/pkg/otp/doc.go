// Package otp derives and checks time-based one-time passwords (RFC 6238).
//
// Seeds are handed around as 64 character hex strings. HexToBase32 turns such a
// seed into the base32 secret that authenticator apps and pquerna/otp expect;
// TOTP then produces and validates codes for an explicit instant so callers can
// drive it from an injected clock.
package otp
