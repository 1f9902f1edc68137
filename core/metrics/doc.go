// Package metrics defines the sink contracts used to observe predictions and
// intelligence runs. Sinks like PromSink and InfluxSink live in infra/metrics
// and register themselves with the factory; NewMetricsSink returns a
// MultiSink automatically when several sinks are configured. Optional
// recorder interfaces let a sink opt into the events it understands.
package metrics
