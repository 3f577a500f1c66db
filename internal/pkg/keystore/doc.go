// Package keystore loads PEM encoded RSA key material from disk.
//
// Keys are expected to be stored unencrypted. Passphrase protected PEM blocks
// are rejected rather than prompted for, so the deployment is responsible for
// protecting the key files at rest (file permissions, mounted secrets, etc).
package keystore
