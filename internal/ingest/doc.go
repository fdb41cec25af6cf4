// Package ingest feeds envelopes to the engine.
//
// Two sources exist: a Kafka consumer for the running service and a file
// reader for batch application. Kafka messages are keyed by routing key, so
// partition order preserves per-document arrival order; the consumer applies
// each message synchronously and commits its offset afterwards.
package ingest
