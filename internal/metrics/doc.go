// Package metrics records publish run metrics.
//
// Components take a Recorder and default to NoopRecorder, so metrics stay optional
// and no call site needs a nil check. PrometheusRecorder registers its collectors
// on a registry that the CLI either writes to a node-exporter textfile after each
// run or serves over HTTP in daemon mode.
package metrics
