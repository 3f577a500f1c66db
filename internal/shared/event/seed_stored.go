package event

import "time"

// SeedStoredDestination is the topic/subject a SeedStoredMessage is published to.
const SeedStoredDestination string = "seed.stored"

// SeedStoredMessage announces that a new seed replaced the stored one. It
// carries a keyed fingerprint so consumers can tell seeds apart; the seed
// itself is never published.
type SeedStoredMessage struct {
	EventID     int64     `json:"event_id"`
	Fingerprint string    `json:"fingerprint"`
	StoredAt    time.Time `json:"stored_at"`
}
