// Package skorche implements an in-process dataflow pipeline engine: a DAG
// of task stages and control operators (split, merge, batch, unbatch,
// filter) connected by typed queues, terminated by an in-band end-of-stream
// sentinel, and owned end-to-end by a PipelineManager.
package skorche
