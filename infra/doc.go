// Package infra holds the technical adapters of the dispatch service: SQL
// persistence, event relay publishers, metrics sinks, logging and error
// monitoring. Adapters depend on the interfaces in core, never the reverse.
package infra
