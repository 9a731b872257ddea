// Package metrics provides a Prometheus metrics server and the provisioning
// counters exported by the workflow.
package metrics
