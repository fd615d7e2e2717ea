// Package producer publishes messages to Kafka on top of a connected
// kafka.Client.
//
// The producer has no broker list of its own: its writer reuses the
// client's address and transport, so it can only be created once the
// client is connected.
package producer
