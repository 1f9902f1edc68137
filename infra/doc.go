// Package infra contains the adapters behind the core contracts: artifact
// files, Postgres queries, prediction log files, metrics sinks, MQTT alerts
// and Sentry reporting. These packages depend on core, never the reverse.
package infra
