// Package metrics holds the Prometheus counters of the update provider and
// exports them in the node-exporter textfile format for one-shot commands.
package metrics
