/*
Package observability provides tools for monitoring the escape engine.

It turns domain.LifecycleHooks into Prometheus metrics and structured log lines,
and composes several hook sets so journals, metrics and event streams can observe
the same engine.
*/
package observability
