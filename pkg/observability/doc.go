/*
Package observability provides lifecycle hooks for monitoring Concierge conversations.

It includes structured logging of every message, transition and dispatch, Prometheus
metrics for query latency and outcomes, and an archive hook that records each finished
dispatch through a ports.Archive.
*/
package observability
