// Package service routes commands to per-symbol order books.
//
// Exchange owns one book per configured symbol, converts decimal prices to
// integer ticks, fans trades out to the configured sinks and keeps the
// Prometheus counters current. Books never share state, so commands for
// different symbols run in parallel.
package service
