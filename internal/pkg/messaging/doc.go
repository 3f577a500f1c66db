// Package messaging publishes domain events to a message broker.
//
// Business code depends on Publisher only; the broker (NATS, NSQ, Kafka or
// Google Pub/Sub) is chosen by driver name at start-up. A noop driver lets the
// service run without a broker.
package messaging
